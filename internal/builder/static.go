package builder

import (
	"context"
	"fmt"
	"strings"

	"appforge/internal/artifact"
	"appforge/internal/feature"
)

// Static is a deterministic offline backend. It derives features from
// the goal text with simple clause splitting, emits a fixed
// architecture and synthesizes one scaffolding spec per feature node.
// Used by tests and by the CLI's offline mode.
type Static struct {
	Version string // artifact version stamp, defaults to 0.1.0
}

func (s *Static) version() string {
	if s == nil || strings.TrimSpace(s.Version) == "" {
		return "0.1.0"
	}
	return s.Version
}

// entityHints maps goal keywords to the data entity a feature touches.
var entityHints = map[string]string{
	"user":    "User",
	"account": "User",
	"login":   "User",
	"auth":    "User",
	"todo":    "Task",
	"task":    "Task",
	"bill":    "Invoice",
	"pay":     "Invoice",
	"invoice": "Invoice",
	"report":  "Report",
	"chart":   "Report",
	"chat":    "Message",
	"message": "Message",
	"notify":  "Notification",
	"email":   "Notification",
}

func (s *Static) Intake(_ context.Context, req IntakeRequest) (*artifact.Intake, error) {
	goal := strings.TrimSpace(req.Goal)
	out := &artifact.Intake{
		Metadata: artifact.Metadata{
			AppName: appNameFor(goal),
			Version: s.version(),
		},
		Goal:       goal,
		Confidence: 0.9,
	}

	for i, clause := range splitClauses(goal) {
		id := fmt.Sprintf("f%d-%s", i+1, slug(clause))
		f := artifact.Feature{
			ID:          id,
			Name:        clause,
			Description: "derived from goal clause",
			Priority:    i, // declaration order doubles as priority
			Entities:    entitiesFor(clause),
		}
		out.Features = append(out.Features, f)
	}
	if len(out.Features) == 0 {
		out.Features = append(out.Features, artifact.Feature{
			ID:   "f1-core",
			Name: "core capability",
		})
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Static) Architecture(_ context.Context, in *artifact.Intake) (*artifact.Architecture, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("static builder: %w", err)
	}
	out := &artifact.Architecture{
		Overview: artifact.Overview{
			Style:    "modular monolith",
			Patterns: []string{"repository", "service layer"},
			Summary:  "layered services over a shared relational store",
		},
		Security: artifact.Security{
			Authentication: "jwt",
			Authorization:  "rbac",
		},
		SharedInfrastructure: []string{"relational database", "object storage"},
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Static) FeatureGraph(_ context.Context, in *artifact.Intake, arch *artifact.Architecture) (*artifact.FeatureGraph, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("static builder: %w", err)
	}
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("static builder: %w", err)
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

func (s *Static) Scaffolding(_ context.Context, g *artifact.FeatureGraph, arch *artifact.Architecture) ([]artifact.ScaffoldingSpec, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("static builder: %w", err)
	}
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("static builder: %w", err)
	}
	specs := make([]artifact.ScaffoldingSpec, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		specs = append(specs, artifact.ScaffoldingSpec{
			Metadata: artifact.ScaffoldMeta{
				FeatureID:   node.ID,
				FeatureName: node.Name,
				Version:     s.version(),
			},
			Steps: []artifact.ScaffoldStep{
				{Name: "model", Kind: "schema", Detail: "define entities and migrations"},
				{Name: "endpoints", Kind: "api", Detail: "expose CRUD handlers"},
				{Name: "tests", Kind: "test", Detail: "cover the happy path and auth failures"},
			},
		})
	}
	if err := artifact.ValidateScaffoldingSet(specs, g); err != nil {
		return nil, err
	}
	return specs, nil
}

// splitClauses breaks a goal into independent feature clauses on
// conjunctions, list bullets and commas, mirroring the atomizer's
// notion of a composite goal.
func splitClauses(goal string) []string {
	if goal == "" {
		return nil
	}
	normalized := strings.ToLower(goal)
	for _, marker := range []string{" and ", " then ", " plus ", " with ", " as well as ", ";"} {
		normalized = strings.ReplaceAll(normalized, marker, "\n")
	}
	normalized = strings.ReplaceAll(normalized, ",", "\n")

	var clauses []string
	for _, line := range strings.Split(normalized, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789.) "))
		if line == "" {
			continue
		}
		clauses = append(clauses, line)
	}
	return clauses
}

func entitiesFor(clause string) []string {
	lower := strings.ToLower(clause)
	seen := map[string]bool{}
	var out []string
	for kw, entity := range entityHints {
		if strings.Contains(lower, kw) && !seen[entity] {
			seen[entity] = true
			out = append(out, entity)
		}
	}
	return out
}

func appNameFor(goal string) string {
	name := slug(goal)
	if len(name) > 32 {
		name = strings.Trim(name[:32], "-")
	}
	return name
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	out = strings.Trim(out, "-")
	if out == "" {
		return "app"
	}
	return out
}
