package prompt

import (
	"strings"
	"testing"
)

func TestBuildRendersSections(t *testing.T) {
	spec := Spec{
		Purpose:     "Turn a goal into a structured intake.",
		Background:  "The goal describes an application to scaffold.",
		Constraints: StrictJSON,
		Rules:       NoInvent,
		OutputFields: []Field{
			{Name: "metadata.appName", Type: "string", Required: true, Description: "short product name"},
			{Name: "features", Type: "array", Required: true},
		},
	}
	out, err := Build(spec, map[string]string{"goal": "build a todo app"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, section := range []string{"[PURPOSE]", "[INPUT]", "[OUTPUT]", "[CONSTRAINTS]", "[RULES]"} {
		if !strings.Contains(out, section) {
			t.Fatalf("prompt missing section %s:\n%s", section, out)
		}
	}
	if !strings.Contains(out, "metadata.appName (string, required): short product name") {
		t.Fatalf("output field not rendered:\n%s", out)
	}
	if !strings.Contains(out, "build a todo app") {
		t.Fatalf("input not rendered:\n%s", out)
	}
}

func TestBuildRejectsEmptySpec(t *testing.T) {
	if _, err := Build(Spec{}, nil); err == nil {
		t.Fatal("empty purpose must be rejected")
	}
	if _, err := Build(Spec{Purpose: "p"}, nil); err == nil {
		t.Fatal("empty output fields must be rejected")
	}
}

func TestBuildSkipsEmptySections(t *testing.T) {
	spec := Spec{
		Purpose:      "p",
		OutputFields: []Field{{Name: "x", Type: "string"}},
	}
	out, err := Build(spec, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if strings.Contains(out, "[BACKGROUND]") || strings.Contains(out, "[CONSTRAINTS]") {
		t.Fatalf("empty sections must be omitted:\n%s", out)
	}
}
