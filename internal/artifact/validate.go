package artifact

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks the intake schema contract: a non-empty app name
// and a version.
func (a *Intake) Validate() error {
	if a == nil {
		return fmt.Errorf("intake is nil")
	}
	if strings.TrimSpace(a.Metadata.AppName) == "" {
		return fmt.Errorf("intake: metadata.appName is required")
	}
	if strings.TrimSpace(a.Metadata.Version) == "" {
		return fmt.Errorf("intake: metadata.version is required")
	}
	seen := make(map[string]bool, len(a.Features))
	for _, f := range a.Features {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return fmt.Errorf("intake: feature %q has no id", f.Name)
		}
		if seen[id] {
			return fmt.Errorf("intake: duplicate feature id %q", id)
		}
		seen[id] = true
	}
	return nil
}

// Validate checks the architecture schema contract: overview patterns
// and both security decisions present.
func (a *Architecture) Validate() error {
	if a == nil {
		return fmt.Errorf("architecture is nil")
	}
	if a.Overview.Patterns == nil {
		return fmt.Errorf("architecture: overview.patterns is required")
	}
	if strings.TrimSpace(a.Security.Authentication) == "" {
		return fmt.Errorf("architecture: security.authentication is required")
	}
	if strings.TrimSpace(a.Security.Authorization) == "" {
		return fmt.Errorf("architecture: security.authorization is required")
	}
	return nil
}

// Validate checks the feature graph schema contract: nodes present,
// proven acyclic, with at least one execution stage.
func (g *FeatureGraph) Validate() error {
	if g == nil {
		return fmt.Errorf("feature graph is nil")
	}
	if g.Nodes == nil {
		return fmt.Errorf("feature graph: nodes is required")
	}
	if !g.Validation.IsAcyclic {
		return fmt.Errorf("feature graph: cycle through %v", g.Validation.CycleMembers)
	}
	if len(g.Nodes) > 0 && len(g.ExecutionStages) == 0 {
		return fmt.Errorf("feature graph: executionStages is empty")
	}
	return nil
}

// Validate checks one scaffolding spec: full metadata plus at least
// one step.
func (s *ScaffoldingSpec) Validate() error {
	if s == nil {
		return fmt.Errorf("scaffolding spec is nil")
	}
	if strings.TrimSpace(s.Metadata.FeatureID) == "" {
		return fmt.Errorf("scaffolding: metadata.featureId is required")
	}
	if strings.TrimSpace(s.Metadata.FeatureName) == "" {
		return fmt.Errorf("scaffolding: metadata.featureName is required")
	}
	if strings.TrimSpace(s.Metadata.Version) == "" {
		return fmt.Errorf("scaffolding: metadata.version is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scaffolding %s: steps is empty", s.Metadata.FeatureID)
	}
	return nil
}

// ValidateScaffoldingSet checks every spec in the set and the 1:1 id
// correspondence with the feature graph's nodes.
func ValidateScaffoldingSet(specs []ScaffoldingSpec, g *FeatureGraph) error {
	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			return err
		}
	}
	if g == nil {
		return nil
	}
	want := append([]string(nil), g.NodeIDs()...)
	got := make([]string, 0, len(specs))
	for _, s := range specs {
		got = append(got, s.Metadata.FeatureID)
	}
	sort.Strings(want)
	sort.Strings(got)
	if len(want) != len(got) {
		return fmt.Errorf("scaffolding: %d specs for %d feature nodes", len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("scaffolding: spec ids do not match feature nodes (missing %q)", want[i])
		}
	}
	return nil
}
