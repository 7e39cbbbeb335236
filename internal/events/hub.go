package events

import (
	"strings"
	"sync"
	"time"
)

const completedRunRetention = 30 * time.Second

// Hub routes events to per-run buffered channels. Sends never block:
// when a run's buffer is full the event is dropped, keeping the
// executor independent of slow watchers.
type Hub struct {
	mu        sync.RWMutex
	byRun     map[string]chan Event
	retention time.Duration
}

func NewHub() *Hub {
	return &Hub{
		byRun:     make(map[string]chan Event),
		retention: completedRunRetention,
	}
}

// Allocate creates (or replaces) the event channel for a run.
func (h *Hub) Allocate(runID string, size int) chan Event {
	if size <= 0 {
		size = 1
	}
	ch := make(chan Event, size)
	if h == nil {
		return ch
	}
	h.mu.Lock()
	h.byRun[strings.TrimSpace(runID)] = ch
	h.mu.Unlock()
	return ch
}

// Channel returns a run's channel if one is allocated.
func (h *Hub) Channel(runID string) (chan Event, bool) {
	if h == nil {
		return nil, false
	}
	h.mu.RLock()
	ch, ok := h.byRun[strings.TrimSpace(runID)]
	h.mu.RUnlock()
	return ch, ok
}

// Emit implements Emitter. Events for runs without an allocated
// channel are dropped.
func (h *Hub) Emit(ev Event) {
	ch, ok := h.Channel(ev.RunID)
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		// watcher too slow, drop
	}
}

// ScheduleCleanup removes a completed run's channel after the
// retention window, giving late watchers a chance to drain it.
func (h *Hub) ScheduleCleanup(runID string) {
	if h == nil {
		return
	}
	time.AfterFunc(h.retention, func() {
		h.mu.Lock()
		delete(h.byRun, strings.TrimSpace(runID))
		h.mu.Unlock()
	})
}
