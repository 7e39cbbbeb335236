package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

type flakyClient struct {
	failures int
	calls    int
	err      error
}

func (f *flakyClient) Name() string { return "flaky" }
func (f *flakyClient) Close() error { return nil }

func (f *flakyClient) GenerateJSON(_ context.Context, _ string, _ any) (json.RawMessage, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, fmt.Errorf("transient failure %d", f.calls)
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func TestRetryEventuallySucceeds(t *testing.T) {
	c := &flakyClient{failures: 2}
	wrapped := Wrap(c, Retry(3, time.Millisecond))

	raw, err := wrapped.GenerateJSON(context.Background(), "p", nil)
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("unexpected payload %s", raw)
	}
	if c.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", c.calls)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	c := &flakyClient{failures: 10}
	wrapped := Wrap(c, Retry(2, time.Millisecond))

	if _, err := wrapped.GenerateJSON(context.Background(), "p", nil); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if c.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", c.calls)
	}
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	c := &flakyClient{failures: 10, err: NewPermanentError(errors.New("schema rejected"))}
	wrapped := Wrap(c, Retry(5, time.Millisecond))

	_, err := wrapped.GenerateJSON(context.Background(), "p", nil)
	var pErr *PermanentError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if c.calls != 1 {
		t.Fatalf("permanent error must not be retried, got %d attempts", c.calls)
	}
}

func TestScriptedRoutesByOperation(t *testing.T) {
	s := NewScripted().
		On("intake", `{"a":1}`).
		Fail("architecture", errors.New("boom"))

	raw, err := s.GenerateJSON(WithOperation(context.Background(), "intake"), "p", nil)
	if err != nil {
		t.Fatalf("intake error = %v", err)
	}
	if string(raw) != `{"a":1}` {
		t.Fatalf("unexpected intake payload %s", raw)
	}

	if _, err := s.GenerateJSON(WithOperation(context.Background(), "architecture"), "p", nil); err == nil {
		t.Fatal("expected scripted failure")
	}
	if _, err := s.GenerateJSON(WithOperation(context.Background(), "scaffolding"), "p", nil); err == nil {
		t.Fatal("unscripted operation must error, not panic")
	}
}

func TestRateLimiterDisabledWhenZero(t *testing.T) {
	l := newRPSLimiter(0, 0)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("nil limiter must be a no-op, got %v", err)
	}
	l.Stop()
}

func TestRateLimiterRespectsContext(t *testing.T) {
	l := newRPSLimiter(0.01, 1)
	defer l.Stop()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first token should be available: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("expected context deadline while waiting for a token")
	}
}
