// Package builder defines the generation backend interface the
// executor dispatches to, plus the two shipped implementations: an
// LLM-backed builder and a deterministic offline one.
package builder

import (
	"context"
	"errors"

	"appforge/internal/artifact"
)

// ErrNeedsClarification is returned when the backend cannot reach a
// confident intake for the goal within its clarification budget.
var ErrNeedsClarification = errors.New("builder: goal needs clarification")

// IntakeRequest carries the goal and optional extra context into the
// intake operation. Feedback is set on clarification re-prompts.
type IntakeRequest struct {
	Goal     string            `json:"goal"`
	Context  map[string]string `json:"context,omitempty"`
	Feedback string            `json:"feedback,omitempty"`
}

// Interface is the generation backend. Every operation validates its
// own output against the artifact schemas and returns an error on
// malformed input or output; the executor converts any error into a
// task failure.
type Interface interface {
	Intake(ctx context.Context, req IntakeRequest) (*artifact.Intake, error)
	Architecture(ctx context.Context, in *artifact.Intake) (*artifact.Architecture, error)
	FeatureGraph(ctx context.Context, in *artifact.Intake, arch *artifact.Architecture) (*artifact.FeatureGraph, error)
	Scaffolding(ctx context.Context, g *artifact.FeatureGraph, arch *artifact.Architecture) ([]artifact.ScaffoldingSpec, error)
}
