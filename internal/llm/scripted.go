package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type scriptedResponse struct {
	raw json.RawMessage
	err error
}

// Scripted is a deterministic offline client for tests: responses are
// queued per operation tag and popped in order, with the last entry
// sticky. Missing scripts are an error, not a panic.
type Scripted struct {
	mu    sync.Mutex
	byOp  map[string][]scriptedResponse
	calls []string
}

func NewScripted() *Scripted {
	return &Scripted{byOp: make(map[string][]scriptedResponse)}
}

// On queues a raw JSON response for the given operation.
func (s *Scripted) On(op, raw string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOp[op] = append(s.byOp[op], scriptedResponse{raw: json.RawMessage(raw)})
	return s
}

// Fail queues an error for the given operation.
func (s *Scripted) Fail(op string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOp[op] = append(s.byOp[op], scriptedResponse{err: err})
	return s
}

// Calls returns the operation tags seen so far, in call order.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Scripted) Name() string { return "ScriptedLLM" }
func (s *Scripted) Close() error { return nil }

func (s *Scripted) GenerateJSON(ctx context.Context, _ string, _ any) (json.RawMessage, error) {
	op := OperationFrom(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	queue := s.byOp[op]
	if len(queue) == 0 {
		return nil, fmt.Errorf("scripted llm: no response scripted for operation %q", op)
	}
	head := queue[0]
	if len(queue) > 1 {
		s.byOp[op] = queue[1:]
	}
	if head.err != nil {
		return nil, head.err
	}
	return head.raw, nil
}
