package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vortex"
	"vortex/logging"
)

// NewFunctionNode wraps a callback so custom logic can be inlined into a
// flow. The callback sees the shared context and returns the next action.
func NewFunctionNode(name string, fn func(ctx context.Context, shared *vortex.SharedContext) (string, error)) *vortex.Node {
	return vortex.NewNode(vortex.NodeConfig{
		Name: name,
		Postlude: func(ctx context.Context, shared *vortex.SharedContext, _, _ any, _ map[string]any) (string, error) {
			if fn == nil {
				return "", nil
			}
			return fn(ctx, shared)
		},
	})
}

// NewConditionalNode routes on a predicate over the shared context. The
// returned label selects the outgoing edge; empty falls through to the
// default edge.
func NewConditionalNode(name string, condition func(shared *vortex.SharedContext) string) *vortex.Node {
	return vortex.NewNode(vortex.NodeConfig{
		Name: name,
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, _ any, _ map[string]any) (string, error) {
			return condition(shared), nil
		},
	})
}

// NewLoopNode repeats until max iterations are reached, emitting againAction
// while more passes remain and the default action once done. The pass
// counter lives in the node's component under "count", so the bound is
// observable from the shared context.
func NewLoopNode(name string, maxIterations int, againAction string) *vortex.Node {
	if againAction == "" {
		againAction = "again"
	}
	component := name
	return vortex.NewNode(vortex.NodeConfig{
		Name:      name,
		Component: component,
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, _ any, _ map[string]any) (string, error) {
			data := shared.Component(component)
			count, _ := data["count"].(int)
			count++
			data["count"] = count
			if count >= maxIterations {
				return "", nil
			}
			return againAction, nil
		},
	})
}

// NewDelayNode waits for the configured duration before continuing.
func NewDelayNode(name string, duration time.Duration) *vortex.Node {
	return vortex.NewNode(vortex.NodeConfig{
		Name: name,
		Dispatch: func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(duration):
				return nil, nil
			}
		},
	})
}

// NewLoggerNode emits selected keys from a component plus a custom message,
// for debugging pipelines.
func NewLoggerNode(name, component, message string, keys ...string) *vortex.Node {
	return vortex.NewNode(vortex.NodeConfig{
		Name:      name,
		Component: component,
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, _ any, _ map[string]any) (string, error) {
			parts := []string{message}
			data := shared.Component(component)
			for _, key := range keys {
				if val, ok := data[key]; ok {
					parts = append(parts, fmt.Sprintf("%s=%v", key, val))
				}
			}
			logging.Component("nodes").Info().Str("node", name).Msg(strings.Join(parts, " | "))
			return "", nil
		},
	})
}

func init() {
	Register(Definition{
		ID:          "function",
		Description: "Wraps a Go callback so custom logic can be inlined inside a flow.",
		Example:     `nodes.NewFunctionNode("clean", func(ctx context.Context, shared *vortex.SharedContext) (string, error) { shared.Component("clean")["status"] = "done"; return "", nil })`,
	})
	Register(Definition{
		ID:          "conditional",
		Description: "Routes execution based on a predicate over the shared context.",
		Example:     `nodes.NewConditionalNode("router", func(shared *vortex.SharedContext) string { return shared.Component("score")["band"].(string) })`,
	})
	Register(Definition{
		ID:          "loop",
		Description: "Emits a loop-back action a fixed number of times, then falls through.",
		Example:     `nodes.NewLoopNode("rounds", 3, "again")`,
	})
	Register(Definition{
		ID:          "delay",
		Description: "Pauses execution for a duration then continues.",
		Example:     `nodes.NewDelayNode("wait", 500*time.Millisecond)`,
	})
	Register(Definition{
		ID:          "logger",
		Description: "Emits selected component keys and a custom message.",
		Example:     `nodes.NewLoggerNode("debug", "translator", "state", "input", "output")`,
	})
}
