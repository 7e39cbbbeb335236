package events

import (
	"testing"
	"time"
)

func TestHubRoutesByRun(t *testing.T) {
	h := NewHub()
	ch := h.Allocate("run-1", 4)

	h.Emit(Event{RunID: "run-1", Type: TaskStarted, TaskID: "a", At: time.Now()})
	h.Emit(Event{RunID: "run-2", Type: TaskStarted, TaskID: "b", At: time.Now()})

	select {
	case ev := <-ch:
		if ev.TaskID != "a" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected event for run-1")
	}
	select {
	case ev := <-ch:
		t.Fatalf("run-2 event leaked into run-1 channel: %+v", ev)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	ch := h.Allocate("run-1", 1)

	h.Emit(Event{RunID: "run-1", Type: TaskStarted})
	h.Emit(Event{RunID: "run-1", Type: TaskSucceeded}) // dropped, must not block

	if len(ch) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(ch))
	}
}

func TestHubEmitWithoutChannelIsNoop(t *testing.T) {
	h := NewHub()
	h.Emit(Event{RunID: "ghost", Type: TaskFailed}) // must not panic
}

func TestHubCleanupRemovesChannel(t *testing.T) {
	h := NewHub()
	h.retention = 10 * time.Millisecond
	h.Allocate("run-1", 1)
	h.ScheduleCleanup("run-1")

	deadline := time.After(time.Second)
	for {
		if _, ok := h.Channel("run-1"); !ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("channel not cleaned up")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
