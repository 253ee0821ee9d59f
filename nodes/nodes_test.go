package nodes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"vortex"
	"vortex/kv"
)

func TestRegistryListsBuiltins(t *testing.T) {
	for _, id := range []string{"llm", "llm_router", "http", "kv_read", "kv_write", "function", "conditional", "loop", "delay", "logger", "shell"} {
		if _, ok := DefinitionFor(id); !ok {
			t.Fatalf("node kind %q should be registered", id)
		}
	}

	defs := Registered()
	for i := 1; i < len(defs); i++ {
		if defs[i-1].ID > defs[i].ID {
			t.Fatalf("catalog should be sorted, %q before %q", defs[i-1].ID, defs[i].ID)
		}
	}
}

func TestRegisterReplacesExistingKind(t *testing.T) {
	Register(Definition{ID: "scratch", Description: "first"})
	Register(Definition{ID: "scratch", Description: "second"})

	def, ok := DefinitionFor("scratch")
	if !ok || def.Description != "second" {
		t.Fatalf("re-registering should replace the entry, got %+v", def)
	}

	seen := 0
	for _, d := range Registered() {
		if d.ID == "scratch" {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("expected one catalog entry for the ID, got %d", seen)
	}
}

func TestLLMNodeMockResponse(t *testing.T) {
	vortex.ResetNodes()

	cfg := DefaultLLMConfig("translate")
	node := NewLLMNode(nil, cfg)

	shared := vortex.NewSharedContext(nil)
	shared.Component("translate")["input"] = "hello world"

	if _, err := node.Run(context.Background(), shared); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	got := shared.Component("translate")[cfg.OutputKey]
	if got != "mock response for hello world" {
		t.Fatalf("unexpected output %v", got)
	}
}

func TestLLMNodeMissingInput(t *testing.T) {
	vortex.ResetNodes()

	node := NewLLMNode(nil, DefaultLLMConfig("summarize"))
	if _, err := node.Run(context.Background(), vortex.NewSharedContext(nil)); err == nil {
		t.Fatal("expected an error for a missing input key")
	}
}

func TestLLMRouterDefaultsWithoutClient(t *testing.T) {
	vortex.ResetNodes()

	router := NewLLMRouter(nil, RouterConfig{
		Name:    "route",
		Actions: []string{"search", "summarize"},
	})

	shared := vortex.NewSharedContext(nil)
	shared.Component("route")["input"] = "find papers about pipelines"

	action, err := router.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if action != "search" {
		t.Fatalf("a nil client should fall through to the default action, got %q", action)
	}
}

func TestFunctionNodeRunsCallback(t *testing.T) {
	vortex.ResetNodes()

	node := NewFunctionNode("mark", func(_ context.Context, shared *vortex.SharedContext) (string, error) {
		shared.Component("mark")["ran"] = true
		return "marked", nil
	})

	shared := vortex.NewSharedContext(nil)
	action, err := node.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if action != "marked" || shared.Component("mark")["ran"] != true {
		t.Fatalf("callback outcome not observed, action %q", action)
	}
}

func TestConditionalNodeRoutes(t *testing.T) {
	vortex.ResetNodes()

	cond := NewConditionalNode("branch", func(shared *vortex.SharedContext) string {
		if shared.Component("branch")["hot"] == true {
			return "hot-path"
		}
		return "cold-path"
	})
	hot := NewFunctionNode("hot-handler", func(_ context.Context, shared *vortex.SharedContext) (string, error) {
		shared.Component("branch")["handled"] = "hot"
		return "", nil
	})
	cold := NewFunctionNode("cold-handler", func(_ context.Context, shared *vortex.SharedContext) (string, error) {
		shared.Component("branch")["handled"] = "cold"
		return "", nil
	})
	cond.Next(hot, "hot-path")
	cond.Next(cold, "cold-path")

	shared := vortex.NewSharedContext(nil)
	shared.Component("branch")["hot"] = true

	if _, err := vortex.NewFlow("branching", cond).Run(context.Background(), shared); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if shared.Component("branch")["handled"] != "hot" {
		t.Fatalf("expected the hot path, got %v", shared.Component("branch")["handled"])
	}
}

func TestLoopNodeBoundsIterations(t *testing.T) {
	vortex.ResetNodes()

	loop := NewLoopNode("rounds", 3, "again")
	done := NewFunctionNode("loop-done", func(_ context.Context, _ *vortex.SharedContext) (string, error) {
		return "finished", nil
	})
	loop.Next(loop, "again")
	loop.Next(done) // default once the bound is hit

	shared := vortex.NewSharedContext(nil)
	action, err := vortex.NewFlow("bounded-loop", loop).Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if action != "finished" {
		t.Fatalf("expected finished, got %q", action)
	}
	if shared.Component("rounds")["count"] != 3 {
		t.Fatalf("expected 3 passes, got %v", shared.Component("rounds")["count"])
	}
}

func TestKVNodesRoundTrip(t *testing.T) {
	vortex.ResetNodes()

	store := kv.NewMemoryStore()

	write := NewKVWriteNode("persist", store, "greeting", "value")
	read := NewKVReadNode("load", store, "greeting", "loaded")
	write.Next(read)

	shared := vortex.NewSharedContext(nil)
	shared.Component("persist")["value"] = "hello"

	if _, err := vortex.NewFlow("kv-round-trip", write).Run(context.Background(), shared); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if shared.Component("load")["loaded"] != "hello" {
		t.Fatalf("expected the stored value back, got %v", shared.Component("load")["loaded"])
	}
}

func TestHTTPNodeStoresResponse(t *testing.T) {
	vortex.ResetNodes()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "pipelines" {
			t.Errorf("missing query parameter, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	cfg := DefaultHTTPConfig("fetch")
	cfg.URL = server.URL
	cfg.QueryParams = map[string]string{"q": "pipelines"}

	node, err := NewHTTPNode(cfg)
	if err != nil {
		t.Fatalf("building node failed: %v", err)
	}

	shared := vortex.NewSharedContext(nil)
	if _, err := node.Run(context.Background(), shared); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	data := shared.Component("fetch")
	if data[cfg.StatusKey] != http.StatusOK {
		t.Fatalf("expected status 200, got %v", data[cfg.StatusKey])
	}
	body, ok := data[cfg.ResponseKey].(map[string]any)
	if !ok {
		t.Fatalf("expected a parsed JSON body, got %T", data[cfg.ResponseKey])
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestHTTPNodeTemplatedURL(t *testing.T) {
	vortex.ResetNodes()

	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte("done"))
	}))
	defer server.Close()

	cfg := DefaultHTTPConfig("templated")
	cfg.URL = server.URL + "/items/{{.item_id}}"
	cfg.ResponseAsJSON = false

	node, err := NewHTTPNode(cfg)
	if err != nil {
		t.Fatalf("building node failed: %v", err)
	}

	shared := vortex.NewSharedContext(nil)
	shared.Component("templated")["item_id"] = "42"

	if _, err := node.Run(context.Background(), shared); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if path != "/items/42" {
		t.Fatalf("expected the rendered path, got %q", path)
	}
	if shared.Component("templated")[cfg.ResponseKey] != "done" {
		t.Fatalf("expected raw body, got %v", shared.Component("templated")[cfg.ResponseKey])
	}
}

func TestHTTPNodeRequiresURL(t *testing.T) {
	if _, err := NewHTTPNode(HTTPConfig{Name: "broken"}); err == nil {
		t.Fatal("expected an error for a missing url")
	}
}
