package llm

import "context"

type opKey struct{}

// WithOperation tags the context with the builder operation being
// generated (intake, architecture, ...). Clients use it for logging
// and scripted test doubles use it for routing.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

// OperationFrom returns the operation tag, or "" when unset.
func OperationFrom(ctx context.Context) string {
	if v, ok := ctx.Value(opKey{}).(string); ok {
		return v
	}
	return ""
}
