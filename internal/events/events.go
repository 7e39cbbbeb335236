// Package events carries per-run execution events from the executor
// to observers: an in-process hub with per-run buffered channels and
// a websocket feed for external watchers.
package events

import "time"

// Type names an execution event.
type Type string

const (
	RunStarted     Type = "run_started"
	RunCompleted   Type = "run_completed"
	StageStarted   Type = "stage_started"
	StageCompleted Type = "stage_completed"
	TaskStarted    Type = "task_started"
	TaskSucceeded  Type = "task_succeeded"
	TaskFailed     Type = "task_failed"
	TaskSkipped    Type = "task_skipped"
)

// Event is one observation from a run.
type Event struct {
	RunID   string    `json:"runId"`
	Type    Type      `json:"type"`
	TaskID  string    `json:"taskId,omitempty"`
	Stage   int       `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Emitter receives events. Implementations must not block: the
// executor emits from hot paths.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to an Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }
