package feature

import (
	"fmt"
	"testing"

	"appforge/internal/artifact"
)

func TestBuildOneNodePerFeature(t *testing.T) {
	features := []artifact.Feature{
		{ID: "auth", Name: "Authentication"},
		{ID: "billing", Name: "Billing", DependsOn: []string{"auth"}},
		{ID: "reports", Name: "Reporting", DependsOn: []string{"billing"}},
	}
	g, err := Build(features, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(g.Nodes))
	}
	if !g.Validation.IsAcyclic {
		t.Fatalf("expected acyclic graph, cycle %v", g.Validation.CycleMembers)
	}
	if len(g.ExecutionStages) != 3 {
		t.Fatalf("chain of 3 should stage into 3, got %v", g.ExecutionStages)
	}
	if len(g.CriticalPath) != 3 {
		t.Fatalf("critical path should cover the chain, got %v", g.CriticalPath)
	}
}

func TestBuildSetupNodeFromSharedInfrastructure(t *testing.T) {
	arch := &artifact.Architecture{SharedInfrastructure: []string{"postgres", "object storage"}}
	features := []artifact.Feature{
		{ID: "auth", Name: "Authentication"},
		{ID: "billing", Name: "Billing"},
	}
	g, err := Build(features, arch)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Fatalf("expected setup + 2 feature nodes, got %d", len(g.Nodes))
	}
	if len(g.ExecutionStages) == 0 || len(g.ExecutionStages[0]) != 1 || g.ExecutionStages[0][0] != SetupNodeID {
		t.Fatalf("setup must run alone in stage 0, got %v", g.ExecutionStages)
	}
}

func TestBuildDataEdgesFromSharedEntities(t *testing.T) {
	features := []artifact.Feature{
		{ID: "accounts", Name: "Accounts", Entities: []string{"User"}},
		{ID: "audit", Name: "Audit log", Entities: []string{"user"}},
	}
	g, err := Build(features, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	var audit *artifact.FeatureNode
	for i := range g.Nodes {
		if g.Nodes[i].ID == "audit" {
			audit = &g.Nodes[i]
		}
	}
	if audit == nil {
		t.Fatal("audit node missing")
	}
	found := false
	for _, e := range audit.Edges {
		if e.To == "accounts" && e.Kind == artifact.EdgeData {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected data edge audit -> accounts, got %v", audit.Edges)
	}
}

func TestBuildBreaksCycleByDowngrading(t *testing.T) {
	features := []artifact.Feature{
		{ID: "a", Name: "A", Priority: 5, DependsOn: []string{"b"}},
		{ID: "b", Name: "B", Priority: 1, DependsOn: []string{"a"}},
	}
	g, err := Build(features, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !g.Validation.IsAcyclic {
		t.Fatalf("cycle must be repaired, got %v", g.Validation.CycleMembers)
	}
	if len(g.Diagnostics) == 0 {
		t.Fatal("downgrade decision must be recorded in diagnostics")
	}
	soft := 0
	for _, n := range g.Nodes {
		for _, e := range n.Edges {
			if e.Kind == artifact.EdgeSoft {
				soft++
			}
		}
	}
	if soft != 1 {
		t.Fatalf("exactly one edge should have been downgraded, got %d", soft)
	}
}

func TestBuildDuplicateIDRejected(t *testing.T) {
	features := []artifact.Feature{
		{ID: "x", Name: "X"},
		{ID: "x", Name: "X again"},
	}
	if _, err := Build(features, nil); err == nil {
		t.Fatal("duplicate feature id must be an input error")
	}
}

func TestBuildUnknownDependencyBecomesDiagnostic(t *testing.T) {
	features := []artifact.Feature{
		{ID: "a", Name: "A", DependsOn: []string{"ghost"}},
	}
	g, err := Build(features, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Diagnostics) == 0 {
		t.Fatal("dropped edge must be recorded")
	}
	if len(g.ExecutionStages) != 1 {
		t.Fatalf("single feature should stage alone, got %v", g.ExecutionStages)
	}
}

func TestBuildHundredFeatures(t *testing.T) {
	features := make([]artifact.Feature, 0, 100)
	for i := 0; i < 100; i++ {
		f := artifact.Feature{
			ID:   fmt.Sprintf("f%03d", i),
			Name: fmt.Sprintf("Feature %d", i),
		}
		if i > 0 {
			f.DependsOn = []string{fmt.Sprintf("f%03d", (i-1)/2)}
		}
		features = append(features, f)
	}
	g, err := Build(features, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Nodes) != 100 {
		t.Fatalf("expected exactly 100 nodes, got %d", len(g.Nodes))
	}
	if !g.Validation.IsAcyclic {
		t.Fatal("declared-acyclic input must stay acyclic")
	}
	if len(g.ExecutionStages) < 1 {
		t.Fatal("expected at least one execution stage")
	}

	index := map[string]int{}
	for i, stage := range g.ExecutionStages {
		for _, id := range stage {
			index[id] = i
		}
	}
	for _, n := range g.Nodes {
		for _, e := range n.Edges {
			if e.Kind == artifact.EdgeHard && index[e.To] >= index[n.ID] {
				t.Fatalf("hard dependency %s staged after dependent %s", e.To, n.ID)
			}
		}
	}
}

func TestBuildEmptyFeatureList(t *testing.T) {
	g, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(g.Nodes))
	}
	if !g.Validation.IsAcyclic {
		t.Fatal("empty graph is acyclic")
	}
}
