package vortex

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vortex/logging"
)

// ErrNoStartStage is returned when a flow runs before a start stage is set.
var ErrNoStartStage = errors.New("flow has no start stage")

// Flow sequences stages by following action-labeled edges. Starting at its
// start stage it runs the current stage, resolves the returned action in the
// stage's successor map, and repeats until no edge matches. A Flow is itself
// a Stage, so flows nest inside other flows and parallel steps, where a
// parent sees only the final action label.
//
// Termination is driven purely by the absence of a matching edge. The engine
// performs no cycle detection: a cycle with no escaping edge runs until the
// context is cancelled or MaxSteps (when set) trips. Looping is a supported
// pattern, with the exit decided at the domain level.
type Flow struct {
	baseStage
	start    Stage
	maxSteps int
	monitors []Monitor
}

// NewFlow builds a flow with the given entry stage. A nil start may be set
// later with Start, but must be present before the first run.
func NewFlow(name string, start Stage) *Flow {
	return &Flow{
		baseStage: baseStage{name: name},
		start:     start,
	}
}

// Start sets the entry stage and returns it so edge wiring can chain.
func (f *Flow) Start(start Stage) Stage {
	f.start = start
	return start
}

// WithMaxSteps bounds the traversal; zero (the default) means unbounded.
func (f *Flow) WithMaxSteps(max int) *Flow {
	f.maxSteps = max
	return f
}

// AddMonitor registers an observability hook notified of run events.
func (f *Flow) AddMonitor(m Monitor) *Flow {
	if m != nil {
		f.monitors = append(f.monitors, m)
	}
	return f
}

// Run traverses the graph from the start stage and returns the last action
// produced. A stage error aborts the traversal with that error and no
// action. Successors registered on the flow itself are consulted only by an
// enclosing flow.
func (f *Flow) Run(ctx context.Context, shared *SharedContext) (string, error) {
	f.warnIfDirectRun()
	return f.step(ctx, shared)
}

func (f *Flow) step(ctx context.Context, shared *SharedContext) (lastAction string, runErr error) {
	if f.start == nil {
		return "", fmt.Errorf("flow %s: %w", f.name, ErrNoStartStage)
	}

	runID := uuid.NewString()
	log := logging.Component("flow")

	ctx = withRetryNotifier(ctx, func(stage string, err error) {
		f.emit(ctx, Event{Type: EventStageRetry, RunID: runID, Flow: f.name, Stage: stage, Err: err})
	})

	f.emit(ctx, Event{Type: EventFlowStart, RunID: runID, Flow: f.name, Stage: f.start.Name()})
	defer func() {
		f.emit(ctx, Event{
			Type:   EventFlowComplete,
			RunID:  runID,
			Flow:   f.name,
			Stage:  shared.CurrentStage(),
			Action: lastAction,
			Err:    runErr,
		})
	}()

	curr := f.start
	steps := 0
	for curr != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if f.maxSteps > 0 && steps >= f.maxSteps {
			return "", fmt.Errorf("flow %s: max steps exceeded: %d", f.name, f.maxSteps)
		}

		log.Debug().Str("flow", f.name).Str("stage", curr.Name()).Msg("running stage")
		f.emit(ctx, Event{Type: EventStageStart, RunID: runID, Flow: f.name, Stage: curr.Name()})

		action, err := curr.step(ctx, shared)
		if err != nil {
			f.emit(ctx, Event{Type: EventStageError, RunID: runID, Flow: f.name, Stage: curr.Name(), Err: err})
			return "", err
		}

		f.emit(ctx, Event{Type: EventStageEnd, RunID: runID, Flow: f.name, Stage: curr.Name(), Action: action})

		lastAction = action
		curr = f.nextStage(curr, action)
		steps++
	}

	return lastAction, nil
}

// nextStage resolves the outgoing edge for action in curr's successor map.
// An empty action resolves to ActionDefault; a labeled action with no
// matching edge ends the flow.
func (f *Flow) nextStage(curr Stage, action string) Stage {
	key := action
	if key == "" {
		key = ActionDefault
	}

	next, ok := curr.Successors()[key]
	if !ok && len(curr.Successors()) > 0 {
		logging.Component("flow").Debug().
			Str("flow", f.name).
			Str("stage", curr.Name()).
			Str("action", key).
			Msg("flow ends: action has no successor")
	}
	return next
}
