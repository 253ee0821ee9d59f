package vortex

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// JoinPolicy reduces the actions produced by a ParallelStep's children, in
// configured order, to the step's single outgoing action.
type JoinPolicy func(actions []string) string

// FirstOutcome is the default join policy: the first-configured child's
// action wins and the others are discarded.
func FirstOutcome(actions []string) string {
	if len(actions) == 0 {
		return ""
	}
	return actions[0]
}

// ParallelStep runs a fixed set of child stages concurrently against the
// same SharedContext and joins them into a single action.
//
// The shared context guards its own bookkeeping, but the data inside a
// component is not locked: concurrent writes to the same component are a
// data race by construction and must be avoided by giving siblings disjoint
// components. If any child fails after its own retries, the join fails with
// that error and no action; there is no partial-result policy.
type ParallelStep struct {
	baseStage
	tasks []Stage
	join  JoinPolicy
}

// NewParallelStep builds a fan-out over the given children. Order matters:
// the default join policy returns the first child's action.
func NewParallelStep(name string, tasks ...Stage) *ParallelStep {
	return &ParallelStep{
		baseStage: baseStage{name: name},
		tasks:     tasks,
	}
}

// WithJoin replaces the FirstOutcome join policy.
func (p *ParallelStep) WithJoin(join JoinPolicy) *ParallelStep {
	p.join = join
	return p
}

// Run executes every child concurrently and blocks until all complete.
func (p *ParallelStep) Run(ctx context.Context, shared *SharedContext) (string, error) {
	p.warnIfDirectRun()
	return p.step(ctx, shared)
}

func (p *ParallelStep) step(ctx context.Context, shared *SharedContext) (string, error) {
	if len(p.tasks) == 0 {
		return "", nil
	}

	actions := make([]string, len(p.tasks))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, task := range p.tasks {
		i, task := i, task // per-iteration copies; module targets Go >= 1.22 semantics
		group.Go(func() error {
			action, err := task.step(groupCtx, shared)
			if err != nil {
				return fmt.Errorf("parallel step %s: task %s: %w", p.name, task.Name(), err)
			}
			actions[i] = action
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return "", err
	}

	join := p.join
	if join == nil {
		join = FirstOutcome
	}
	return join(actions), nil
}
