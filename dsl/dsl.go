// Package dsl builds vortex flows from lightweight pipeline definitions:
// a line-based script format and a YAML document format. Both compile to
// the same node specs, so a pipeline can move between the two.
package dsl

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"

	"vortex"
	"vortex/nodes"
)

// PipelineComponent is the shared-context component every DSL-built node
// reads and writes, so steps see each other's data without extra wiring.
const PipelineComponent = "pipeline"

// PipelineSpec is a declarative pipeline definition.
type PipelineSpec struct {
	Name  string     `yaml:"name"`
	Start string     `yaml:"start"`
	Nodes []NodeSpec `yaml:"nodes"`
	Edges []EdgeSpec `yaml:"edges"`
}

// NodeSpec declares one node by kind plus kind-specific parameters.
type NodeSpec struct {
	Name   string         `yaml:"name"`
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params"`
}

// EdgeSpec declares a directed, action-labeled edge. An empty action means
// the default edge.
type EdgeSpec struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Action string `yaml:"action"`
}

// BuildOptions supplies the external collaborators DSL nodes may need.
type BuildOptions struct {
	// LLMClient backs llm nodes; nil produces mock responses.
	LLMClient *openai.Client
}

// LoadPipeline reads a YAML pipeline definition from disk and builds it.
func LoadPipeline(path string, opts BuildOptions) (*vortex.Flow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return BuildYAML(raw, opts)
}

// BuildYAML parses a YAML pipeline definition and builds the flow.
func BuildYAML(raw []byte, opts BuildOptions) (*vortex.Flow, error) {
	var spec PipelineSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("dsl: parsing pipeline: %w", err)
	}
	return Build(&spec, opts)
}

// Build compiles a pipeline spec into a runnable flow. Without explicit
// edges the nodes are chained sequentially via default edges.
func Build(spec *PipelineSpec, opts BuildOptions) (*vortex.Flow, error) {
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("dsl: pipeline contains no nodes")
	}

	stages := make(map[string]vortex.Stage, len(spec.Nodes))
	order := make([]vortex.Stage, 0, len(spec.Nodes))
	for _, ns := range spec.Nodes {
		if ns.Name == "" {
			return nil, fmt.Errorf("dsl: node of kind %q has no name", ns.Kind)
		}
		stage, err := buildNode(ns, opts)
		if err != nil {
			return nil, err
		}
		stages[ns.Name] = stage
		order = append(order, stage)
	}

	if len(spec.Edges) == 0 {
		for i := 0; i+1 < len(order); i++ {
			order[i].Next(order[i+1])
		}
	} else {
		for _, edge := range spec.Edges {
			from, ok := stages[edge.From]
			if !ok {
				return nil, fmt.Errorf("dsl: edge references unknown node %q", edge.From)
			}
			to, ok := stages[edge.To]
			if !ok {
				return nil, fmt.Errorf("dsl: edge references unknown node %q", edge.To)
			}
			from.Next(to, edge.Action)
		}
	}

	start := order[0]
	if spec.Start != "" {
		s, ok := stages[spec.Start]
		if !ok {
			return nil, fmt.Errorf("dsl: start references unknown node %q", spec.Start)
		}
		start = s
	}

	name := spec.Name
	if name == "" {
		name = "pipeline"
	}
	return vortex.NewFlow(name, start), nil
}

func buildNode(ns NodeSpec, opts BuildOptions) (vortex.Stage, error) {
	switch strings.ToLower(ns.Kind) {
	case "set":
		key := stringParam(ns.Params, "key", "")
		if key == "" {
			return nil, fmt.Errorf("dsl: set node %q requires key", ns.Name)
		}
		value := ns.Params["value"]
		return nodes.NewFunctionNode(ns.Name, func(_ context.Context, shared *vortex.SharedContext) (string, error) {
			shared.Component(PipelineComponent)[key] = value
			return "", nil
		}), nil

	case "llm":
		cfg := nodes.DefaultLLMConfig(ns.Name)
		cfg.Component = PipelineComponent
		cfg.InputKey = stringParam(ns.Params, "input", cfg.InputKey)
		cfg.OutputKey = stringParam(ns.Params, "output", cfg.OutputKey)
		cfg.SystemPrompt = stringParam(ns.Params, "system", cfg.SystemPrompt)
		cfg.Model = stringParam(ns.Params, "model", cfg.Model)
		return nodes.NewLLMNode(opts.LLMClient, cfg), nil

	case "logger":
		message := stringParam(ns.Params, "message", ns.Name)
		return nodes.NewLoggerNode(ns.Name, PipelineComponent, message, stringSliceParam(ns.Params, "keys")...), nil

	case "delay":
		raw := stringParam(ns.Params, "duration", "")
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("dsl: delay node %q: invalid duration %q", ns.Name, raw)
		}
		return nodes.NewDelayNode(ns.Name, duration), nil

	case "loop":
		max, ok := intParam(ns.Params, "max")
		if !ok {
			return nil, fmt.Errorf("dsl: loop node %q requires max", ns.Name)
		}
		return nodes.NewLoopNode(ns.Name, max, stringParam(ns.Params, "again", "again")), nil

	case "http":
		cfg := nodes.DefaultHTTPConfig(ns.Name)
		cfg.Component = PipelineComponent
		cfg.URL = stringParam(ns.Params, "url", "")
		cfg.Method = stringParam(ns.Params, "method", cfg.Method)
		cfg.ResponseKey = stringParam(ns.Params, "output", cfg.ResponseKey)
		return nodes.NewHTTPNode(cfg)

	default:
		return nil, fmt.Errorf("dsl: unknown node kind %q", ns.Kind)
	}
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return fallback
}

func stringSliceParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, raw := range v {
			out = append(out, fmt.Sprintf("%v", raw))
		}
		return out
	case string:
		return strings.Fields(v)
	}
	return nil
}

func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
