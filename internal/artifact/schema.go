// Package artifact defines the typed JSON artifacts exchanged between
// the executor, the builder backend and the verifier, together with
// the schema checks each artifact must satisfy.
package artifact

import "appforge/internal/graph"

// Canonical artifact names as they appear in stores and verification
// reports.
const (
	NameIntake       = "intake"
	NameArchitecture = "architecture"
	NameFeatureGraph = "feature_graph"
	NameScaffolding  = "scaffolding"
)

// Metadata identifies an intake artifact.
type Metadata struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

// Feature is one requested capability extracted from the goal.
// DependsOn lists features that must be finished first; SoftAfter
// lists features that should precede this one but may run in parallel
// when forced; Entities names the data entities the feature touches.
type Feature struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	DependsOn   []string `json:"dependsOn,omitempty"`
	SoftAfter   []string `json:"softAfter,omitempty"`
	Entities    []string `json:"entities,omitempty"`
}

// Intake is the structured form of the goal: what to build, for whom,
// broken into features. Confidence is the backend's own estimate of
// how well it understood the goal.
type Intake struct {
	Metadata    Metadata  `json:"metadata"`
	Goal        string    `json:"goal,omitempty"`
	Features    []Feature `json:"features"`
	Assumptions []string  `json:"assumptions,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
}

// Overview summarizes the architectural shape of the app.
type Overview struct {
	Style    string   `json:"style,omitempty"`
	Patterns []string `json:"patterns"`
	Summary  string   `json:"summary,omitempty"`
}

// Security captures the authn/authz decisions the scaffolding must
// honor.
type Security struct {
	Authentication string `json:"authentication"`
	Authorization  string `json:"authorization"`
}

// Architecture is the design produced from an intake.
type Architecture struct {
	Overview             Overview `json:"overview"`
	Security             Security `json:"security"`
	SharedInfrastructure []string `json:"sharedInfrastructure,omitempty"`
}

// EdgeKind tags a feature dependency edge.
type EdgeKind string

const (
	EdgeHard EdgeKind = "hard" // must complete before
	EdgeSoft EdgeKind = "soft" // should precede, may run in parallel when forced
	EdgeData EdgeKind = "data" // consumes the output of
)

// FeatureEdge points from a node to a node it depends on.
type FeatureEdge struct {
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// FeatureNode is one feature in the feature graph.
type FeatureNode struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Edges []FeatureEdge `json:"edges,omitempty"`
}

// FeatureGraph is the validated, staged feature DAG. Diagnostics
// records non-fatal decisions made while building it, such as edges
// downgraded to break a cycle.
type FeatureGraph struct {
	Nodes           []FeatureNode          `json:"nodes"`
	Validation      graph.ValidationResult `json:"validation"`
	ExecutionStages [][]string             `json:"executionStages"`
	CriticalPath    []string               `json:"criticalPath,omitempty"`
	Diagnostics     []string               `json:"diagnostics,omitempty"`
}

// HardDeps returns the staging-relevant dependency map: node id to
// the ids its hard edges point at. Soft and data edges advise
// scheduling but do not constrain stage assignment.
func (g *FeatureGraph) HardDeps() map[string][]string {
	if g == nil {
		return nil
	}
	deps := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		for _, e := range n.Edges {
			if e.Kind == EdgeHard {
				deps[n.ID] = append(deps[n.ID], e.To)
			}
		}
	}
	return deps
}

// NodeIDs returns the node ids in declaration order.
func (g *FeatureGraph) NodeIDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// ScaffoldMeta ties a scaffolding spec back to its feature node.
type ScaffoldMeta struct {
	FeatureID   string `json:"featureId"`
	FeatureName string `json:"featureName"`
	Version     string `json:"version"`
}

// ScaffoldStep is one generation step inside a scaffolding spec.
type ScaffoldStep struct {
	Name   string `json:"name"`
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ScaffoldingSpec describes how one feature gets generated. The set
// of specs for a run must correspond 1:1 with the feature graph's
// nodes.
type ScaffoldingSpec struct {
	Metadata ScaffoldMeta   `json:"metadata"`
	Steps    []ScaffoldStep `json:"steps"`
}
