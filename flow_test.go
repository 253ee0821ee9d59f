package vortex

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingMonitor collects every event a flow emits, in order.
type recordingMonitor struct {
	events []Event
}

func (m *recordingMonitor) Notify(_ context.Context, ev Event) {
	m.events = append(m.events, ev)
}

func actionNode(t *testing.T, name, action string) *Node {
	t.Helper()
	return NewNode(NodeConfig{
		Name: name,
		Postlude: func(_ context.Context, _ *SharedContext, _, _ any, _ map[string]any) (string, error) {
			return action, nil
		},
	})
}

func TestFlowFollowsLabeledEdges(t *testing.T) {
	ResetNodes()

	var visited []string
	record := func(name, action string) *Node {
		return NewNode(NodeConfig{
			Name: name,
			Postlude: func(_ context.Context, _ *SharedContext, _, _ any, _ map[string]any) (string, error) {
				visited = append(visited, name)
				return action, nil
			},
		})
	}

	a := record("a", "go-right")
	b := record("b", "")
	c := record("c", "done")

	a.Next(b, "go-right")
	b.Next(c) // default edge

	flow := NewFlow("labeled", a)
	action, err := flow.Run(context.Background(), NewSharedContext(nil))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if action != "done" {
		t.Fatalf("expected final action done, got %q", action)
	}
	if len(visited) != 3 || visited[0] != "a" || visited[1] != "b" || visited[2] != "c" {
		t.Fatalf("unexpected visit order %v", visited)
	}
}

func TestFlowTerminatesOnUnmatchedAction(t *testing.T) {
	ResetNodes()

	start := actionNode(t, "start", "missing")
	other := actionNode(t, "other", "")
	start.Next(other, "known")

	flow := NewFlow("unmatched", start)
	action, err := flow.Run(context.Background(), NewSharedContext(nil))
	if err != nil {
		t.Fatalf("an unmatched action is normal termination, got error %v", err)
	}
	if action != "missing" {
		t.Fatalf("expected the unmatched action back, got %q", action)
	}
}

func TestFlowCycleUntilThreshold(t *testing.T) {
	ResetNodes()

	loop := NewNode(NodeConfig{
		Name:      "loop",
		Component: "counter",
		Postlude: func(_ context.Context, shared *SharedContext, _, _ any, _ map[string]any) (string, error) {
			comp := shared.Component("counter")
			count, _ := comp["count"].(int)
			count++
			comp["count"] = count
			if count >= 3 {
				return "finish", nil
			}
			return "again", nil
		},
	})
	done := actionNode(t, "done", "finish")

	loop.Next(loop, "again")
	loop.Next(done, "finish")

	shared := NewSharedContext(nil)
	flow := NewFlow("cycle", loop)
	action, err := flow.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if action != "finish" {
		t.Fatalf("expected finish, got %q", action)
	}
	if got := shared.Component("counter")["count"]; got != 3 {
		t.Fatalf("expected 3 loop passes, got %v", got)
	}
}

func TestFlowAbortsOnStageError(t *testing.T) {
	ResetNodes()

	boom := errors.New("boom")
	failing := NewNode(NodeConfig{
		Name: "failing",
		Dispatch: func(_ context.Context, _ any, _ map[string]any) (any, error) {
			return nil, boom
		},
	})
	unreachable := actionNode(t, "unreachable", "")
	failing.Next(unreachable)

	flow := NewFlow("aborts", failing)
	action, err := flow.Run(context.Background(), NewSharedContext(nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected the stage error, got %v", err)
	}
	if action != "" {
		t.Fatalf("an aborted flow must not return an action, got %q", action)
	}
}

func TestFlowWithoutStartStage(t *testing.T) {
	flow := NewFlow("empty", nil)
	if _, err := flow.Run(context.Background(), NewSharedContext(nil)); !errors.Is(err, ErrNoStartStage) {
		t.Fatalf("expected ErrNoStartStage, got %v", err)
	}
}

func TestFlowMaxSteps(t *testing.T) {
	ResetNodes()

	spin := actionNode(t, "spin", "again")
	spin.Next(spin, "again")

	flow := NewFlow("bounded", spin).WithMaxSteps(10)
	if _, err := flow.Run(context.Background(), NewSharedContext(nil)); err == nil {
		t.Fatal("expected max steps error")
	}
}

func TestFlowContextCancellation(t *testing.T) {
	ResetNodes()

	spin := actionNode(t, "spinner", "again")
	spin.Next(spin, "again")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	flow := NewFlow("cancelled-flow", spin)
	if _, err := flow.Run(ctx, NewSharedContext(nil)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestFlowMonitorEvents(t *testing.T) {
	ResetNodes()

	a := actionNode(t, "first", "")
	b := actionNode(t, "second", "over")
	a.Next(b)

	mon := &recordingMonitor{}
	flow := NewFlow("observed", a)
	flow.AddMonitor(mon)

	if _, err := flow.Run(context.Background(), NewSharedContext(nil)); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if len(mon.events) == 0 {
		t.Fatal("expected events")
	}
	if mon.events[0].Type != EventFlowStart {
		t.Fatalf("first event should be %s, got %s", EventFlowStart, mon.events[0].Type)
	}
	last := mon.events[len(mon.events)-1]
	if last.Type != EventFlowComplete {
		t.Fatalf("last event should be %s, got %s", EventFlowComplete, last.Type)
	}
	if last.Action != "over" {
		t.Fatalf("completion event should carry the final action, got %q", last.Action)
	}

	starts := 0
	for _, ev := range mon.events {
		if ev.Type == EventStageStart {
			starts++
		}
		if ev.RunID != mon.events[0].RunID {
			t.Fatal("all events of one run should share a run id")
		}
	}
	if starts != 2 {
		t.Fatalf("expected 2 stage starts, got %d", starts)
	}
}

func TestFlowMonitorSeesRetries(t *testing.T) {
	ResetNodes()

	attempts := 0
	flaky := NewNode(NodeConfig{
		Name:       "observed-flaky",
		RetryWaits: []time.Duration{time.Millisecond, time.Millisecond},
		Dispatch: func(_ context.Context, _ any, _ map[string]any) (any, error) {
			attempts++
			if attempts <= 2 {
				return nil, errors.New("transient failure")
			}
			return nil, nil
		},
	})

	mon := &recordingMonitor{}
	flow := NewFlow("retry-observed", flaky).AddMonitor(mon)
	if _, err := flow.Run(context.Background(), NewSharedContext(nil)); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	retries := 0
	for _, ev := range mon.events {
		if ev.Type == EventStageRetry {
			retries++
			if ev.Stage != "observed-flaky" || ev.Err == nil {
				t.Fatalf("retry event missing stage or error: %+v", ev)
			}
		}
	}
	if retries != 2 {
		t.Fatalf("expected 2 retry events, got %d", retries)
	}
}

func TestFlowMonitorSeesStageError(t *testing.T) {
	ResetNodes()

	failing := NewNode(NodeConfig{
		Name: "observed-failure",
		Dispatch: func(_ context.Context, _ any, _ map[string]any) (any, error) {
			return nil, errors.New("down")
		},
	})

	mon := &recordingMonitor{}
	flow := NewFlow("error-observed", failing).AddMonitor(mon)
	if _, err := flow.Run(context.Background(), NewSharedContext(nil)); err == nil {
		t.Fatal("expected error")
	}

	sawError := false
	for _, ev := range mon.events {
		if ev.Type == EventStageError && ev.Err != nil {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("expected a stage error event")
	}
}

func TestNestedFlow(t *testing.T) {
	ResetNodes()

	innerStage := NewNode(NodeConfig{
		Name:      "inner-work",
		Component: "inner",
		Postlude: func(_ context.Context, shared *SharedContext, _, _ any, _ map[string]any) (string, error) {
			shared.Component("inner")["ran"] = true
			return "inner-done", nil
		},
	})
	inner := NewFlow("inner", innerStage)

	after := actionNode(t, "after", "all-done")
	inner.Next(after, "inner-done")

	shared := NewSharedContext(nil)
	outer := NewFlow("outer", inner)
	action, err := outer.Run(context.Background(), shared)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if action != "all-done" {
		t.Fatalf("expected all-done, got %q", action)
	}
	if shared.Component("inner")["ran"] != true {
		t.Fatal("inner flow should have run against the shared context")
	}
}

func TestStageNextOverwriteKeepsLatest(t *testing.T) {
	ResetNodes()

	a := actionNode(t, "over-a", "went")
	b := actionNode(t, "over-b", "")
	c := actionNode(t, "over-c", "")

	a.Next(b, "went")
	a.Next(c, "went") // rewires the same label

	if a.Successors()["went"] != Stage(c) {
		t.Fatal("a later Next on the same label should win")
	}
}
