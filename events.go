package vortex

import (
	"context"
	"time"
)

// EventType enumerates the lifecycle hooks a Flow emits while running.
type EventType string

const (
	EventFlowStart    EventType = "flow_start"
	EventStageStart   EventType = "stage_start"
	EventStageEnd     EventType = "stage_end"
	EventStageRetry   EventType = "stage_retry"
	EventStageError   EventType = "stage_error"
	EventFlowComplete EventType = "flow_complete"
)

// Event carries the metadata observability hooks can use. Monitors that need
// pipeline data should read it from the SharedContext owned by the caller;
// events deliberately carry only routing metadata.
type Event struct {
	Type      EventType
	Timestamp time.Time
	RunID     string
	Flow      string
	Stage     string
	Action    string
	Err       error
}

// Monitor observes lifecycle events emitted by Flow.Run. Notify is called
// synchronously on the flow's goroutine, so implementations should return
// quickly or hand off to their own worker.
type Monitor interface {
	Notify(ctx context.Context, event Event)
}

func (f *Flow) emit(ctx context.Context, event Event) {
	if len(f.monitors) == 0 {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, m := range f.monitors {
		m.Notify(ctx, event)
	}
}

type retryNotifierKey struct{}

// withRetryNotifier threads a flow's retry-event emission to the nodes it
// drives, including children of a nested ParallelStep.
func withRetryNotifier(ctx context.Context, notify func(stage string, err error)) context.Context {
	return context.WithValue(ctx, retryNotifierKey{}, notify)
}

// notifyRetry surfaces one dispatch retry to the owning flow's monitors, if
// a flow is driving this node.
func notifyRetry(ctx context.Context, stage string, err error) {
	if notify, ok := ctx.Value(retryNotifierKey{}).(func(stage string, err error)); ok {
		notify(stage, err)
	}
}
