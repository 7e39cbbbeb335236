package verify

import (
	"testing"

	"appforge/internal/artifact"
	"appforge/internal/graph"
)

func goodBundle() map[string]any {
	fg := &artifact.FeatureGraph{
		Nodes: []artifact.FeatureNode{
			{ID: "auth", Name: "Auth"},
			{ID: "billing", Name: "Billing", Edges: []artifact.FeatureEdge{{To: "auth", Kind: artifact.EdgeHard}}},
		},
		Validation:      graph.ValidationResult{IsAcyclic: true},
		ExecutionStages: [][]string{{"auth"}, {"billing"}},
	}
	return map[string]any{
		artifact.NameIntake: &artifact.Intake{
			Metadata: artifact.Metadata{AppName: "crm", Version: "0.1.0"},
			Goal:     "build a crm",
			Features: []artifact.Feature{{ID: "auth", Name: "Auth"}},
		},
		artifact.NameArchitecture: &artifact.Architecture{
			Overview: artifact.Overview{Patterns: []string{"rest-api"}},
			Security: artifact.Security{Authentication: "jwt", Authorization: "rbac"},
		},
		artifact.NameFeatureGraph: fg,
		artifact.NameScaffolding: []artifact.ScaffoldingSpec{
			{
				Metadata: artifact.ScaffoldMeta{FeatureID: "auth", FeatureName: "Auth", Version: "0.1.0"},
				Steps:    []artifact.ScaffoldStep{{Name: "model"}},
			},
			{
				Metadata: artifact.ScaffoldMeta{FeatureID: "billing", FeatureName: "Billing", Version: "0.1.0"},
				Steps:    []artifact.ScaffoldStep{{Name: "model"}},
			},
		},
	}
}

func findingFor(t *testing.T, res Result, check string) Finding {
	t.Helper()
	for _, f := range res.Findings {
		if f.Check == check {
			return f
		}
	}
	t.Fatalf("no finding named %q in %v", check, res.Findings)
	return Finding{}
}

func TestArtifactsAllChecksPass(t *testing.T) {
	res := Artifacts(goodBundle())
	if !res.Passed {
		t.Fatalf("expected bundle to pass, findings: %+v", res.Findings)
	}
	for _, f := range res.Findings {
		if !f.Passed {
			t.Errorf("unexpected failed finding %s: %s", f.Check, f.Message)
		}
	}
}

func TestArtifactsNilValuesFailPresence(t *testing.T) {
	res := Artifacts(map[string]any{
		artifact.NameIntake:       nil,
		artifact.NameArchitecture: nil,
	})
	if res.Passed {
		t.Fatal("nil artifacts must not verify")
	}
	for _, name := range KnownArtifacts {
		f := findingFor(t, res, name+".presence")
		if f.Passed {
			t.Errorf("presence check for %s should fail", name)
		}
		if f.Severity != Critical {
			t.Errorf("presence severity = %s, want critical", f.Severity)
		}
	}
}

func TestArtifactsWrongShapes(t *testing.T) {
	res := Artifacts(map[string]any{
		artifact.NameIntake:       []any{"not", "an", "object"},
		artifact.NameArchitecture: 42,
		artifact.NameFeatureGraph: "plain string",
		artifact.NameScaffolding:  map[string]any{"not": "a list"},
	})
	if res.Passed {
		t.Fatal("malformed bundle must not verify")
	}
	for _, check := range []string{"intake.shape", "architecture.shape", "feature_graph.shape", "scaffolding.shape"} {
		if findingFor(t, res, check).Passed {
			t.Errorf("%s should fail", check)
		}
	}
}

func TestArtifactsMissingSemanticFields(t *testing.T) {
	bundle := goodBundle()
	bundle[artifact.NameIntake] = map[string]any{
		"metadata": map[string]any{"appName": "", "version": "0.1.0"},
		"features": []any{},
	}
	bundle[artifact.NameArchitecture] = map[string]any{
		"overview": map[string]any{"patterns": "rest-api"},
		"security": map[string]any{"authentication": "jwt", "authorization": ""},
	}
	res := Artifacts(bundle)
	if res.Passed {
		t.Fatal("bundle with missing fields must not verify")
	}
	if findingFor(t, res, "intake.metadata.appName").Passed {
		t.Error("blank appName should fail")
	}
	if f := findingFor(t, res, "intake.features"); f.Passed || f.Severity != Warning {
		t.Errorf("empty features should be a failed warning, got %+v", f)
	}
	if findingFor(t, res, "architecture.overview.patterns").Passed {
		t.Error("non-list patterns should fail")
	}
	if findingFor(t, res, "architecture.security.authorization").Passed {
		t.Error("blank authorization should fail")
	}
}

func TestArtifactsWarningsDoNotFlipVerdict(t *testing.T) {
	bundle := goodBundle()
	bundle[artifact.NameIntake] = &artifact.Intake{
		Metadata: artifact.Metadata{AppName: "crm", Version: "0.1.0"},
	}
	res := Artifacts(bundle)
	if !res.Passed {
		t.Fatalf("warning-only failures must not flip the verdict: %+v", res.Findings)
	}
	if findingFor(t, res, "intake.features").Passed {
		t.Error("empty features warning should still be recorded as failed")
	}
}

func TestArtifactsCyclicGraphFails(t *testing.T) {
	bundle := goodBundle()
	bundle[artifact.NameFeatureGraph] = map[string]any{
		"nodes":           []any{map[string]any{"id": "a"}},
		"validation":      map[string]any{"isAcyclic": false, "cycleMembers": []any{"a"}},
		"executionStages": []any{},
	}
	res := Artifacts(bundle)
	if res.Passed {
		t.Fatal("cyclic graph must not verify")
	}
	if findingFor(t, res, "feature_graph.validation.isAcyclic").Passed {
		t.Error("isAcyclic=false should fail")
	}
	if findingFor(t, res, "feature_graph.executionStages").Passed {
		t.Error("empty stages should fail")
	}
}

func TestArtifactsScaffoldingCorrespondence(t *testing.T) {
	bundle := goodBundle()
	bundle[artifact.NameScaffolding] = []artifact.ScaffoldingSpec{
		{
			Metadata: artifact.ScaffoldMeta{FeatureID: "auth", FeatureName: "Auth", Version: "0.1.0"},
			Steps:    []artifact.ScaffoldStep{{Name: "model"}},
		},
	}
	res := Artifacts(bundle)
	if res.Passed {
		t.Fatal("missing scaffolding spec must not verify")
	}
	if findingFor(t, res, "scaffolding.node_correspondence").Passed {
		t.Error("missing billing spec should break the 1:1 check")
	}
}

func TestArtifactsIncompleteScaffoldSpec(t *testing.T) {
	bundle := goodBundle()
	bundle[artifact.NameScaffolding] = []any{
		map[string]any{
			"metadata": map[string]any{"featureId": "auth", "featureName": "Auth", "version": "0.1.0"},
			"steps":    []any{},
		},
		"not an object",
	}
	res := Artifacts(bundle)
	if res.Passed {
		t.Fatal("incomplete specs must not verify")
	}
	if findingFor(t, res, "scaffolding[0]").Passed {
		t.Error("spec without steps should fail")
	}
	if findingFor(t, res, "scaffolding[1]").Passed {
		t.Error("non-object spec should fail")
	}
}

func TestArtifactsWithRequiredSubset(t *testing.T) {
	res := Artifacts(map[string]any{
		artifact.NameIntake: &artifact.Intake{
			Metadata: artifact.Metadata{AppName: "crm", Version: "0.1.0"},
			Features: []artifact.Feature{{ID: "auth", Name: "Auth"}},
		},
	}, WithRequired(artifact.NameIntake))
	if !res.Passed {
		t.Fatalf("scoped verification should pass, findings: %+v", res.Findings)
	}
	for _, f := range res.Findings {
		if f.Check == artifact.NameArchitecture+".presence" {
			t.Error("unrequired artifact should not be checked")
		}
	}
}
