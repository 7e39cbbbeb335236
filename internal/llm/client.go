// Package llm wraps the generation model behind a small JSON-in,
// JSON-out client interface, with retry and rate-limit middleware.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidJSON is returned when the model produced no usable JSON.
var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// Client generates a JSON document for a prompt plus structured input.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

// Middleware wraps a Client with extra behavior.
type Middleware func(Client) Client

// Wrap applies middleware left to right, so the first one is
// outermost.
func Wrap(c Client, mws ...Middleware) Client {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// PermanentError marks an error that will not resolve with retries,
// such as a rejected schema or an auth failure.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
