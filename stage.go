package vortex

import (
	"context"

	"vortex/logging"
)

// ActionDefault is the reserved label used when a stage produces no explicit
// action, and the label Next registers when none is given. At most one edge
// per stage may use it.
const ActionDefault = "default"

// Stage is a unit of execution inside a pipeline: a Node, a Flow, or a
// ParallelStep. Stages are wired into a graph with Next and executed either
// directly via Run or by a Flow that follows action-labeled edges.
//
// The contract is closed over this package: pipeline authors supply lifecycle
// hooks to NewNode rather than implementing Stage themselves.
type Stage interface {
	// Name identifies the stage in logs, events, and graph definitions.
	Name() string

	// Next registers target as the successor for the given action label
	// (ActionDefault when omitted) and returns target so calls can chain.
	// Registering over an existing label logs a warning and overwrites.
	Next(target Stage, actions ...string) Stage

	// Successors returns the action-labeled edge map. Callers must not
	// mutate it during a run.
	Successors() map[string]Stage

	// Run executes the stage against shared and returns the final action
	// label. Successors are ignored; a Flow is required to follow them,
	// and running a stage with successors directly logs a warning.
	Run(ctx context.Context, shared *SharedContext) (string, error)

	// step runs the stage's lifecycle without the direct-run warning.
	// Flow and ParallelStep drive stages through it.
	step(ctx context.Context, shared *SharedContext) (string, error)
}

// baseStage carries the successor map and name shared by every stage kind.
type baseStage struct {
	name       string
	successors map[string]Stage
}

func (b *baseStage) Name() string { return b.name }

func (b *baseStage) Next(target Stage, actions ...string) Stage {
	action := ActionDefault
	if len(actions) > 0 && actions[0] != "" {
		action = actions[0]
	}
	if b.successors == nil {
		b.successors = make(map[string]Stage)
	}
	if _, exists := b.successors[action]; exists {
		logging.Component("stage").Warn().
			Str("stage", b.name).
			Str("action", action).
			Msg("overwriting existing successor")
	}
	b.successors[action] = target
	return target
}

func (b *baseStage) Successors() map[string]Stage { return b.successors }

// warnIfDirectRun logs when Run is called on a stage that has outgoing edges.
func (b *baseStage) warnIfDirectRun() {
	if len(b.successors) > 0 {
		logging.Component("stage").Warn().
			Str("stage", b.name).
			Msg("successors are ignored when a stage runs directly; use a Flow")
	}
}
