// Package verify checks produced artifacts against structural and
// semantic postconditions. It is pure and total: malformed, missing
// or wrongly-shaped artifacts become failed findings, never panics.
package verify

import (
	"fmt"
	"strings"

	"appforge/internal/artifact"
	"appforge/internal/util/jsonutil"
)

// Severity ranks a finding. Only failed critical findings flip the
// overall verdict; warnings and info are advisory.
type Severity string

const (
	Critical Severity = "critical"
	Warning  Severity = "warning"
	Info     Severity = "info"
)

// Finding is one check's outcome.
type Finding struct {
	Check    string   `json:"checkName"`
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Result aggregates all findings for one artifact bundle.
type Result struct {
	Findings []Finding `json:"findings"`
	Passed   bool      `json:"passed"`
}

type config struct {
	required []string
}

// Option adjusts a verification pass.
type Option func(*config)

// WithRequired narrows the set of artifacts whose absence is
// critical. Degenerate runs (an atomic goal stops after intake) use
// this to avoid demanding artifacts no task was planned to produce.
func WithRequired(names ...string) Option {
	return func(c *config) {
		c.required = names
	}
}

// KnownArtifacts is the default required set.
var KnownArtifacts = []string{
	artifact.NameIntake,
	artifact.NameArchitecture,
	artifact.NameFeatureGraph,
	artifact.NameScaffolding,
}

// Artifacts verifies the bundle and returns the aggregate verdict.
func Artifacts(artifacts map[string]any, opts ...Option) Result {
	cfg := config{required: KnownArtifacts}
	for _, opt := range opts {
		opt(&cfg)
	}

	var r Result
	for _, name := range cfg.required {
		value, present := artifacts[name]
		if !present || value == nil {
			r.add(Finding{
				Check:    name + ".presence",
				Passed:   false,
				Severity: Critical,
				Message:  fmt.Sprintf("required artifact %q is missing", name),
			})
			continue
		}
		r.add(Finding{Check: name + ".presence", Passed: true, Severity: Critical, Message: "present"})

		switch name {
		case artifact.NameIntake:
			r.checkIntake(value)
		case artifact.NameArchitecture:
			r.checkArchitecture(value)
		case artifact.NameFeatureGraph:
			r.checkFeatureGraph(value)
		case artifact.NameScaffolding:
			r.checkScaffolding(value, artifacts[artifact.NameFeatureGraph])
		}
	}

	r.Passed = true
	for _, f := range r.Findings {
		if f.Severity == Critical && !f.Passed {
			r.Passed = false
			break
		}
	}
	return r
}

func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

func (r *Result) addCheck(check string, passed bool, severity Severity, okMsg, failMsg string) {
	msg := okMsg
	if !passed {
		msg = failMsg
	}
	r.add(Finding{Check: check, Passed: passed, Severity: severity, Message: msg})
}

// shape asserts the value is a JSON object, recording the finding.
func (r *Result) shape(name string, value any) (map[string]any, bool) {
	obj, ok := jsonutil.AsObject(value)
	r.addCheck(name+".shape", ok, Critical,
		"structurally valid object",
		fmt.Sprintf("artifact %q is not a JSON object", name))
	return obj, ok
}

func (r *Result) checkIntake(value any) {
	obj, ok := r.shape(artifact.NameIntake, value)
	if !ok {
		return
	}
	appName, _ := stringAt(obj, "metadata", "appName")
	r.addCheck("intake.metadata.appName", strings.TrimSpace(appName) != "", Critical,
		"app name present", "metadata.appName must be a non-empty string")

	version, _ := stringAt(obj, "metadata", "version")
	r.addCheck("intake.metadata.version", strings.TrimSpace(version) != "", Critical,
		"version present", "metadata.version must be a non-empty string")

	features, _ := jsonutil.AsArray(valueAt(obj, "features"))
	r.addCheck("intake.features", len(features) > 0, Warning,
		fmt.Sprintf("%d features declared", len(features)), "intake declares no features")
}

func (r *Result) checkArchitecture(value any) {
	obj, ok := r.shape(artifact.NameArchitecture, value)
	if !ok {
		return
	}
	_, isList := jsonutil.AsArray(valueAt(obj, "overview", "patterns"))
	r.addCheck("architecture.overview.patterns", isList, Critical,
		"patterns is a list", "overview.patterns must be a list")

	sec, secOK := jsonutil.AsObject(valueAt(obj, "security"))
	r.addCheck("architecture.security", secOK, Critical,
		"security object present", "security must be an object")
	if secOK {
		authn, _ := sec["authentication"].(string)
		authz, _ := sec["authorization"].(string)
		r.addCheck("architecture.security.authentication", strings.TrimSpace(authn) != "", Critical,
			"authentication declared", "security.authentication is required")
		r.addCheck("architecture.security.authorization", strings.TrimSpace(authz) != "", Critical,
			"authorization declared", "security.authorization is required")
	}
}

func (r *Result) checkFeatureGraph(value any) {
	obj, ok := r.shape(artifact.NameFeatureGraph, value)
	if !ok {
		return
	}
	nodes, nodesOK := jsonutil.AsArray(valueAt(obj, "nodes"))
	r.addCheck("feature_graph.nodes", nodesOK, Critical,
		fmt.Sprintf("%d nodes", len(nodes)), "nodes must be a list")

	acyclic, _ := valueAt(obj, "validation", "isAcyclic").(bool)
	r.addCheck("feature_graph.validation.isAcyclic", acyclic, Critical,
		"graph proven acyclic", "validation.isAcyclic must be true")

	stages, _ := jsonutil.AsArray(valueAt(obj, "executionStages"))
	r.addCheck("feature_graph.executionStages", len(stages) > 0, Critical,
		fmt.Sprintf("%d execution stages", len(stages)), "executionStages must be a non-empty list")

	if diags, ok := jsonutil.AsArray(valueAt(obj, "diagnostics")); ok && len(diags) > 0 {
		r.add(Finding{
			Check:    "feature_graph.diagnostics",
			Passed:   true,
			Severity: Info,
			Message:  fmt.Sprintf("%d build diagnostics recorded", len(diags)),
		})
	}
}

func (r *Result) checkScaffolding(value, featureGraph any) {
	specs, ok := jsonutil.AsArray(value)
	r.addCheck("scaffolding.shape", ok, Critical,
		fmt.Sprintf("%d specs", len(specs)), "scaffolding must be a list of specs")
	if !ok {
		return
	}

	specIDs := map[string]int{}
	for i, raw := range specs {
		check := fmt.Sprintf("scaffolding[%d]", i)
		obj, isObj := jsonutil.AsObject(raw)
		if !isObj {
			r.addCheck(check, false, Critical, "", "spec is not a JSON object")
			continue
		}
		id, _ := stringAt(obj, "metadata", "featureId")
		name, _ := stringAt(obj, "metadata", "featureName")
		version, _ := stringAt(obj, "metadata", "version")
		steps, _ := jsonutil.AsArray(valueAt(obj, "steps"))

		valid := strings.TrimSpace(id) != "" && strings.TrimSpace(name) != "" &&
			strings.TrimSpace(version) != "" && len(steps) > 0
		r.addCheck(check, valid, Critical,
			fmt.Sprintf("spec %s complete with %d steps", id, len(steps)),
			fmt.Sprintf("spec %d must carry featureId, featureName, version and non-empty steps", i))
		if id != "" {
			specIDs[id]++
		}
	}

	// 1:1 correspondence with feature graph nodes when both are present.
	fgObj, fgOK := jsonutil.AsObject(featureGraph)
	if !fgOK {
		return
	}
	nodes, _ := jsonutil.AsArray(valueAt(fgObj, "nodes"))
	nodeIDs := map[string]int{}
	for _, n := range nodes {
		if obj, ok := jsonutil.AsObject(n); ok {
			if id, _ := obj["id"].(string); id != "" {
				nodeIDs[id]++
			}
		}
	}
	matched := len(nodeIDs) == len(specIDs)
	if matched {
		for id := range nodeIDs {
			if specIDs[id] != 1 {
				matched = false
				break
			}
		}
	}
	r.addCheck("scaffolding.node_correspondence", matched, Critical,
		"specs correspond 1:1 with feature graph nodes",
		fmt.Sprintf("spec ids %v do not match feature graph nodes %v", keys(specIDs), keys(nodeIDs)))
}

func valueAt(obj map[string]any, path ...string) any {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func stringAt(obj map[string]any, path ...string) (string, bool) {
	s, ok := valueAt(obj, path...).(string)
	return s, ok
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
