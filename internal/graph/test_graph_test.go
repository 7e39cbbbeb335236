package graph

import (
	"reflect"
	"testing"
)

func TestValidateAcyclicChain(t *testing.T) {
	nodes := []string{"a", "b", "c", "d"}
	deps := map[string][]string{
		"b": {"a"},
		"c": {"b"},
		"d": {"c"},
	}
	res := Validate(nodes, deps)
	if !res.IsAcyclic {
		t.Fatalf("expected acyclic, got cycle %v", res.CycleMembers)
	}
	if len(res.CycleMembers) != 0 {
		t.Fatalf("expected no cycle members, got %v", res.CycleMembers)
	}
}

func TestValidateReportsTwoNodeCycle(t *testing.T) {
	nodes := []string{"a", "b"}
	deps := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	res := Validate(nodes, deps)
	if res.IsAcyclic {
		t.Fatal("expected cycle to be reported")
	}
	members := map[string]bool{}
	for _, id := range res.CycleMembers {
		members[id] = true
	}
	if !members["a"] || !members["b"] {
		t.Fatalf("cycle members should contain both a and b, got %v", res.CycleMembers)
	}
}

func TestValidateReportsLongerCycleMembers(t *testing.T) {
	nodes := []string{"a", "b", "c", "d"}
	deps := map[string][]string{
		"a": {"d"},
		"b": {"a"},
		"c": {"b"},
		"d": {"c"},
	}
	res := Validate(nodes, deps)
	if res.IsAcyclic {
		t.Fatal("expected cycle to be reported")
	}
	if len(res.CycleMembers) != 4 {
		t.Fatalf("expected all 4 nodes in cycle, got %v", res.CycleMembers)
	}
}

func TestValidateIgnoresDanglingEdges(t *testing.T) {
	nodes := []string{"a", "b"}
	deps := map[string][]string{
		"b": {"a", "ghost"},
	}
	res := Validate(nodes, deps)
	if !res.IsAcyclic {
		t.Fatalf("dangling edge must not produce a cycle: %v", res.CycleMembers)
	}
}

func TestStagesRespectDependencyOrder(t *testing.T) {
	nodes := []string{"a", "b", "c", "d", "e"}
	deps := map[string][]string{
		"c": {"a", "b"},
		"d": {"c"},
		"e": {"a"},
	}
	stages, err := Stages(nodes, deps)
	if err != nil {
		t.Fatalf("Stages() error = %v", err)
	}

	index := map[string]int{}
	seen := 0
	for i, stage := range stages {
		for _, id := range stage {
			if _, dup := index[id]; dup {
				t.Fatalf("node %s assigned to more than one stage", id)
			}
			index[id] = i
			seen++
		}
	}
	if seen != len(nodes) {
		t.Fatalf("expected %d nodes staged, got %d", len(nodes), seen)
	}
	for id, ds := range deps {
		for _, dep := range ds {
			if index[dep] >= index[id] {
				t.Fatalf("dependency %s (stage %d) must precede %s (stage %d)", dep, index[dep], id, index[id])
			}
		}
	}
}

func TestStagesIdempotentMembership(t *testing.T) {
	nodes := []string{"w", "x", "y", "z"}
	deps := map[string][]string{
		"x": {"w"},
		"y": {"w"},
		"z": {"x", "y"},
	}
	first, err := Stages(nodes, deps)
	if err != nil {
		t.Fatalf("first Stages() error = %v", err)
	}
	second, err := Stages(nodes, deps)
	if err != nil {
		t.Fatalf("second Stages() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("staging not stable: %v vs %v", first, second)
	}
}

func TestStagesDetectsCycleDefensively(t *testing.T) {
	nodes := []string{"a", "b"}
	deps := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	if _, err := Stages(nodes, deps); err == nil {
		t.Fatal("expected staging error for cyclic input")
	}
}

func TestCriticalPathLongestChain(t *testing.T) {
	nodes := []string{"a", "b", "c", "d", "e"}
	deps := map[string][]string{
		"b": {"a"},
		"c": {"b"},
		"d": {"c"},
		"e": {"a"},
	}
	got := CriticalPath(nodes, deps)
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CriticalPath() = %v, want %v", got, want)
	}
}

func TestCriticalPathEmptyGraph(t *testing.T) {
	if got := CriticalPath(nil, nil); got != nil {
		t.Fatalf("expected nil path for empty graph, got %v", got)
	}
}
