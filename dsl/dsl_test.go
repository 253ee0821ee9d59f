package dsl

import (
	"context"
	"testing"

	"vortex"
)

func TestBuildYAMLSequentialChain(t *testing.T) {
	vortex.ResetNodes()

	raw := []byte(`
name: translation
nodes:
  - name: seed
    kind: set
    params:
      key: prompt
      value: translate to spanish
  - name: translator
    kind: llm
    params:
      input: prompt
      output: translation
`)

	flow, err := BuildYAML(raw, BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	shared := vortex.NewSharedContext(nil)
	if _, err := flow.Run(context.Background(), shared); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	data := shared.Component(PipelineComponent)
	if data["prompt"] != "translate to spanish" {
		t.Fatalf("set node did not run, got %v", data["prompt"])
	}
	if data["translation"] != "mock response for translate to spanish" {
		t.Fatalf("llm node did not run, got %v", data["translation"])
	}
}

func TestBuildYAMLExplicitEdges(t *testing.T) {
	vortex.ResetNodes()

	raw := []byte(`
name: looping
start: bound
nodes:
  - name: bound
    kind: loop
    params:
      max: 2
      again: more
  - name: after
    kind: set
    params:
      key: done
      value: true
edges:
  - from: bound
    to: bound
    action: more
  - from: bound
    to: after
`)

	flow, err := BuildYAML(raw, BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	shared := vortex.NewSharedContext(nil)
	if _, err := flow.Run(context.Background(), shared); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if shared.Component("bound")["count"] != 2 {
		t.Fatalf("loop should have run twice, got %v", shared.Component("bound")["count"])
	}
	if shared.Component(PipelineComponent)["done"] != true {
		t.Fatal("the default edge out of the loop should have run the set node")
	}
}

func TestBuildYAMLRejectsUnknownKind(t *testing.T) {
	vortex.ResetNodes()

	raw := []byte(`
nodes:
  - name: mystery
    kind: quantum
`)
	if _, err := BuildYAML(raw, BuildOptions{}); err == nil {
		t.Fatal("expected an error for an unknown node kind")
	}
}

func TestBuildYAMLRejectsUnknownEdgeTarget(t *testing.T) {
	vortex.ResetNodes()

	raw := []byte(`
nodes:
  - name: only
    kind: set
    params:
      key: k
      value: v
edges:
  - from: only
    to: ghost
`)
	if _, err := BuildYAML(raw, BuildOptions{}); err == nil {
		t.Fatal("expected an error for an edge to an unknown node")
	}
}

func TestBuildYAMLRejectsEmptyPipeline(t *testing.T) {
	if _, err := BuildYAML([]byte("name: empty\n"), BuildOptions{}); err == nil {
		t.Fatal("expected an error for a pipeline with no nodes")
	}
}
