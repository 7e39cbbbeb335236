package builder

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"appforge/internal/artifact"
	"appforge/internal/feature"
	"appforge/internal/llm"
	"appforge/internal/prompt"
	"appforge/internal/util/jsonutil"
)

const (
	defaultConfidenceFloor  = 0.6
	defaultMaxClarify       = 2
	defaultScaffoldParallel = 4
)

// LLM generates artifacts through a JSON-producing model client.
// Intake runs a bounded clarification loop: a low-confidence result
// is re-prompted with feedback at most MaxClarify times before the
// builder gives up with ErrNeedsClarification.
type LLM struct {
	Client           llm.Client
	ConfidenceFloor  float64 // below this the intake is re-prompted
	MaxClarify       int     // extra intake attempts, default 2
	ScaffoldParallel int     // concurrent scaffolding calls, default 4
}

func (b *LLM) floor() float64 {
	if b.ConfidenceFloor <= 0 {
		return defaultConfidenceFloor
	}
	return b.ConfidenceFloor
}

func (b *LLM) clarifyBudget() int {
	if b.MaxClarify < 0 {
		return 0
	}
	if b.MaxClarify == 0 {
		return defaultMaxClarify
	}
	return b.MaxClarify
}

var intakePrompt = prompt.Spec{
	Purpose:    "Turn a build goal into a structured intake document.",
	Background: "The intake drives an automated scaffolding pipeline; feature ids must be stable slugs.",
	OutputFields: []prompt.Field{
		{Name: "metadata.appName", Type: "string", Required: true, Description: "short product slug"},
		{Name: "metadata.version", Type: "string", Required: true},
		{Name: "features", Type: "array", Required: true, Description: "id, name, dependsOn, softAfter, entities, priority"},
		{Name: "assumptions", Type: "array", Required: false},
		{Name: "confidence", Type: "number", Required: true, Description: "0..1 self-estimate of goal understanding"},
	},
	Constraints: prompt.StrictJSON,
	Rules:       prompt.NoInvent,
}

var architecturePrompt = prompt.Spec{
	Purpose: "Design the architecture for the given intake.",
	OutputFields: []prompt.Field{
		{Name: "overview.style", Type: "string", Required: false},
		{Name: "overview.patterns", Type: "array", Required: true},
		{Name: "security.authentication", Type: "string", Required: true},
		{Name: "security.authorization", Type: "string", Required: true},
		{Name: "sharedInfrastructure", Type: "array", Required: false},
	},
	Constraints: prompt.StrictJSON,
	Rules:       prompt.NoInvent,
}

var scaffoldingPrompt = prompt.Spec{
	Purpose: "Emit the scaffolding steps for one feature of the given architecture.",
	OutputFields: []prompt.Field{
		{Name: "metadata.featureId", Type: "string", Required: true},
		{Name: "metadata.featureName", Type: "string", Required: true},
		{Name: "metadata.version", Type: "string", Required: true},
		{Name: "steps", Type: "array", Required: true, Description: "ordered generation steps: name, kind, detail"},
	},
	Constraints: prompt.StrictJSON,
}

func (b *LLM) generate(ctx context.Context, op string, spec prompt.Spec, input any, target any) error {
	if b == nil || b.Client == nil {
		return fmt.Errorf("llm builder: client is not configured")
	}
	p, err := prompt.Build(spec, input)
	if err != nil {
		return err
	}
	raw, err := b.Client.GenerateJSON(llm.WithOperation(ctx, op), p, input)
	if err != nil {
		return fmt.Errorf("llm builder: %s: %w", op, err)
	}
	if err := jsonutil.UnmarshalFlex(raw, target); err != nil {
		return fmt.Errorf("llm builder: decode %s: %w", op, err)
	}
	return nil
}

func (b *LLM) Intake(ctx context.Context, req IntakeRequest) (*artifact.Intake, error) {
	attempts := 1 + b.clarifyBudget()
	feedback := strings.TrimSpace(req.Feedback)
	for attempt := 0; attempt < attempts; attempt++ {
		in := req
		in.Feedback = feedback
		var out artifact.Intake
		if err := b.generate(ctx, artifact.NameIntake, intakePrompt, in, &out); err != nil {
			return nil, err
		}
		if err := out.Validate(); err != nil {
			return nil, err
		}
		if out.Confidence >= b.floor() {
			return &out, nil
		}
		feedback = fmt.Sprintf(
			"previous attempt had confidence %.2f (floor %.2f); restate the goal's ambiguous parts as explicit assumptions",
			out.Confidence, b.floor())
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrNeedsClarification, attempts)
}

func (b *LLM) Architecture(ctx context.Context, in *artifact.Intake) (*artifact.Architecture, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("llm builder: %w", err)
	}
	var out artifact.Architecture
	if err := b.generate(ctx, artifact.NameArchitecture, architecturePrompt, in, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// FeatureGraph derives the graph deterministically from the intake's
// declared feature relationships; graph math is not delegated to the
// model.
func (b *LLM) FeatureGraph(_ context.Context, in *artifact.Intake, arch *artifact.Architecture) (*artifact.FeatureGraph, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("llm builder: %w", err)
	}
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("llm builder: %w", err)
	}
	g, err := feature.Build(in.Features, arch)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Scaffolding fans out one model call per feature node with bounded
// parallelism. Node identity in the result is authoritative: the
// backend stamps metadata.featureId/featureName from the node it
// prompted for, so the 1:1 correspondence cannot drift on model
// whim.
func (b *LLM) Scaffolding(ctx context.Context, g *artifact.FeatureGraph, arch *artifact.Architecture) ([]artifact.ScaffoldingSpec, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("llm builder: %w", err)
	}
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("llm builder: %w", err)
	}

	limit := b.ScaffoldParallel
	if limit <= 0 {
		limit = defaultScaffoldParallel
	}

	specs := make([]artifact.ScaffoldingSpec, len(g.Nodes))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, node := range g.Nodes {
		eg.Go(func() error {
			input := map[string]any{
				"feature":      node,
				"architecture": arch,
			}
			var spec artifact.ScaffoldingSpec
			if err := b.generate(egCtx, artifact.NameScaffolding, scaffoldingPrompt, input, &spec); err != nil {
				return err
			}
			spec.Metadata.FeatureID = node.ID
			spec.Metadata.FeatureName = node.Name
			if strings.TrimSpace(spec.Metadata.Version) == "" {
				spec.Metadata.Version = "0.1.0"
			}
			if err := spec.Validate(); err != nil {
				return err
			}
			specs[i] = spec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := artifact.ValidateScaffoldingSet(specs, g); err != nil {
		return nil, err
	}
	return specs, nil
}
