package vortex

import "sync"

// ComponentConfigKey is the reserved sub-map inside a component that holds
// per-component configuration overrides. Node merges it over the global
// config before invoking lifecycle hooks.
const ComponentConfigKey = "config"

// Component is a named partition of shared state owned by one or more nodes.
type Component = map[string]any

// SharedContext is the mutable state bag threaded through an entire run.
// It is the only channel for data passed between non-adjacent stages; action
// labels returned by hooks carry routing decisions, nothing else.
//
// The context guards its own bookkeeping (component allocation and the
// current-stage marker) so ParallelStep children can run against it. The
// data INSIDE a component is not locked: sibling tasks of a fan-out must
// write to disjoint components by pipeline design.
type SharedContext struct {
	// GlobalConfig is set once per run by the caller. Read-only by
	// convention; the engine never writes to it.
	GlobalConfig map[string]any

	// Components maps a component identifier to its state, including the
	// reserved "config" sub-map. Access it through Component during a run;
	// direct reads are safe once the run has finished.
	Components map[string]Component

	mu           sync.Mutex
	currentStage string
}

// NewSharedContext builds a context for a single run. A nil global config is
// replaced with an empty map so hooks can always range over it.
func NewSharedContext(global map[string]any) *SharedContext {
	if global == nil {
		global = make(map[string]any)
	}
	return &SharedContext{
		GlobalConfig: global,
		Components:   make(map[string]Component),
	}
}

// Component returns the state partition for name, allocating it on first
// use. Safe to call from concurrent fan-out children.
func (s *SharedContext) Component(name string) Component {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.Components[name]
	if !ok {
		c = make(Component)
		s.Components[name] = c
	}
	return c
}

// SetComponentConfig installs the per-component config overlay for name.
func (s *SharedContext) SetComponentConfig(name string, cfg map[string]any) {
	s.Component(name)[ComponentConfigKey] = cfg
}

// CurrentStage reports which node last began execution. Observability only;
// it never drives control flow.
func (s *SharedContext) CurrentStage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentStage
}

func (s *SharedContext) setCurrentStage(name string) {
	s.mu.Lock()
	s.currentStage = name
	s.mu.Unlock()
}
