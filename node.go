package vortex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vortex/logging"
	"vortex/utils"
)

// PreludeFunc prepares a node's work before dispatch. It receives the shared
// context and the merged configuration, and returns an opaque payload that is
// handed to the dispatch and postlude hooks of the same node.
type PreludeFunc func(ctx context.Context, shared *SharedContext, cfg map[string]any) (any, error)

// DispatchFunc is the node's unit of work, typically a call to an external
// system. It sees only the prelude payload and the merged configuration;
// dispatch errors are retried per the node's retry schedule.
type DispatchFunc func(ctx context.Context, prepRes any, cfg map[string]any) (any, error)

// PostludeFunc finalizes a node's work and decides the next-edge label. An
// empty label resolves to ActionDefault when a Flow looks up the successor.
type PostludeFunc func(ctx context.Context, shared *SharedContext, prepRes, execRes any, cfg map[string]any) (string, error)

// FallbackFunc handles a dispatch error after the retry schedule is
// exhausted. Returning a nil error recovers the node with the given result.
type FallbackFunc func(ctx context.Context, prepRes any, execErr error) (any, error)

// NodeConfig describes a node at construction time. Hooks left nil default
// to no-ops; a nil RetryWaits means dispatch failures are not retried.
type NodeConfig struct {
	// Name identifies the node. Constructing two nodes with the same name
	// returns the same instance (see NewNode).
	Name string

	// Component is the shared-context partition this node reads its config
	// overlay from. Empty means the node only sees the global config.
	Component string

	// RetryWaits is the backoff schedule for dispatch retries. Each entry
	// is consumed once, in order; its length is the maximum retry count.
	RetryWaits []time.Duration

	Prelude  PreludeFunc
	Dispatch DispatchFunc
	Postlude PostludeFunc
	Fallback FallbackFunc
}

// Node is a lifecycle-driven processing stage with configuration merging and
// a retry wrapper around its dispatch hook.
type Node struct {
	baseStage
	component  string
	retryWaits []time.Duration
	prelude    PreludeFunc
	dispatch   DispatchFunc
	postlude   PostludeFunc
	fallback   FallbackFunc
}

var (
	nodeMu     sync.Mutex
	nodeByName = make(map[string]*Node)
)

// NewNode returns the node registered under cfg.Name, creating it on first
// call. A node is constructed at most once per name: later calls return the
// original instance and their config, including the retry schedule, is
// ignored. This keeps a stage reusable across multiple graph positions
// without re-allocating it.
func NewNode(cfg NodeConfig) *Node {
	nodeMu.Lock()
	defer nodeMu.Unlock()

	if existing, ok := nodeByName[cfg.Name]; ok {
		return existing
	}

	n := &Node{
		baseStage:  baseStage{name: cfg.Name},
		component:  cfg.Component,
		retryWaits: append([]time.Duration(nil), cfg.RetryWaits...),
		prelude:    cfg.Prelude,
		dispatch:   cfg.Dispatch,
		postlude:   cfg.Postlude,
		fallback:   cfg.Fallback,
	}
	nodeByName[cfg.Name] = n
	return n
}

// ResetNodes drops every registered node so names can be reused. Intended
// for tests; already-wired graphs keep their instances.
func ResetNodes() {
	nodeMu.Lock()
	defer nodeMu.Unlock()
	nodeByName = make(map[string]*Node)
}

// RetryWaits returns a copy of the schedule fixed at first construction.
func (n *Node) RetryWaits() []time.Duration {
	return append([]time.Duration(nil), n.retryWaits...)
}

// Run executes prelude, dispatch, and postlude in order against shared.
// Successors are ignored; use a Flow to follow them.
func (n *Node) Run(ctx context.Context, shared *SharedContext) (string, error) {
	n.warnIfDirectRun()
	return n.step(ctx, shared)
}

func (n *Node) step(ctx context.Context, shared *SharedContext) (string, error) {
	shared.setCurrentStage(n.name)
	cfg := n.mergedConfig(shared)

	var prepRes any
	if n.prelude != nil {
		var err error
		prepRes, err = n.prelude(ctx, shared, cfg)
		if err != nil {
			return "", fmt.Errorf("node %s: prelude: %w", n.name, err)
		}
	}

	execRes, err := n.dispatchWithRetry(ctx, prepRes, cfg)
	if err != nil {
		return "", fmt.Errorf("node %s: dispatch: %w", n.name, err)
	}

	if n.postlude == nil {
		return "", nil
	}
	action, err := n.postlude(ctx, shared, prepRes, execRes, cfg)
	if err != nil {
		return "", fmt.Errorf("node %s: postlude: %w", n.name, err)
	}
	return action, nil
}

// mergedConfig overlays the node's component config onto the global config.
// Overlay wins on key collision; with no overlay the result equals the
// global config.
func (n *Node) mergedConfig(shared *SharedContext) map[string]any {
	cfg := utils.MergeMaps(shared.GlobalConfig)
	if n.component == "" {
		return cfg
	}
	comp := shared.Component(n.component)
	if overlay, ok := comp[ComponentConfigKey].(map[string]any); ok {
		cfg = utils.MergeMaps(cfg, overlay)
	}
	return cfg
}

// retrySleep blocks for one scheduled backoff, honoring cancellation.
// Swapped out in tests to observe the consumed schedule.
var retrySleep = func(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dispatchWithRetry runs the dispatch hook, consuming one wait from the
// schedule per failure. Every error is retryable; once the schedule is
// exhausted the fallback hook (if any) gets the last error, otherwise the
// error propagates and the owning flow aborts.
func (n *Node) dispatchWithRetry(ctx context.Context, prepRes any, cfg map[string]any) (any, error) {
	if n.dispatch == nil {
		return nil, nil
	}

	waits := n.retryWaits
	for {
		res, err := n.dispatch(ctx, prepRes, cfg)
		if err == nil {
			return res, nil
		}

		if len(waits) == 0 {
			if n.fallback != nil {
				return n.fallback(ctx, prepRes, err)
			}
			return nil, err
		}

		wait := waits[0]
		waits = waits[1:]
		logging.Component("node").Warn().
			Str("node", n.name).
			Dur("wait", wait).
			Int("remaining", len(waits)).
			Err(err).
			Msg("dispatch failed, retrying")
		notifyRetry(ctx, n.name, err)

		if err := retrySleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}
