// Package graph holds the dependency-graph kernel shared by the task
// planner and the feature graph builder: cycle detection, topological
// staging and critical-path extraction over plain node-id edge lists.
package graph

import (
	"fmt"
	"sort"
)

// ValidationResult reports whether a dependency graph is acyclic.
// When it is not, CycleMembers carries every node id on the first
// cycle found.
type ValidationResult struct {
	IsAcyclic    bool     `json:"isAcyclic"`
	CycleMembers []string `json:"cycleMembers,omitempty"`
}

// Validate runs a depth-first cycle check over the given nodes.
// deps maps a node id to the ids it depends on. Edges pointing at ids
// outside the node set are ignored; callers that care about dangling
// references validate them before building the graph.
//
// Validate never panics and never returns an error: malformed input is
// a result, not an exception.
func Validate(nodes []string, deps map[string][]string) ValidationResult {
	known := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		known[id] = true
	}

	const (
		white = 0 // unvisited
		grey  = 1 // on the current DFS stack
		black = 2 // fully explored
	)
	color := make(map[string]int, len(nodes))
	var stack []string

	var cycle []string
	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, dep := range deps[id] {
			if !known[dep] {
				continue
			}
			switch color[dep] {
			case grey:
				// Revisited a node that is still on the stack: everything
				// from its first occurrence to here is the cycle.
				for i, s := range stack {
					if s == dep {
						cycle = append([]string(nil), stack[i:]...)
						break
					}
				}
				return false
			case white:
				if !visit(dep) {
					return false
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return true
	}

	ordered := append([]string(nil), nodes...)
	sort.Strings(ordered)
	for _, id := range ordered {
		if color[id] != white {
			continue
		}
		if !visit(id) {
			return ValidationResult{IsAcyclic: false, CycleMembers: cycle}
		}
	}
	return ValidationResult{IsAcyclic: true}
}

// Stages computes a Kahn-style layering: stage 0 holds every node with
// no in-set dependencies, stage N holds every node whose dependencies
// all live in stages < N. Each stage is sorted, so stage membership
// and order are both deterministic for a given input.
//
// Valid only for acyclic graphs; if no progress can be made while
// nodes remain unassigned, an error naming the stuck nodes is
// returned. That check is defensive: it is unreachable when Validate
// reported the graph acyclic.
func Stages(nodes []string, deps map[string][]string) ([][]string, error) {
	known := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		known[id] = true
	}

	assigned := make(map[string]bool, len(nodes))
	remaining := append([]string(nil), nodes...)
	sort.Strings(remaining)

	var stages [][]string
	for len(remaining) > 0 {
		var stage []string
		var next []string
		for _, id := range remaining {
			ready := true
			for _, dep := range deps[id] {
				if known[dep] && !assigned[dep] {
					ready = false
					break
				}
			}
			if ready {
				stage = append(stage, id)
			} else {
				next = append(next, id)
			}
		}
		if len(stage) == 0 {
			return nil, fmt.Errorf("graph: no progress staging nodes %v (cycle)", next)
		}
		for _, id := range stage {
			assigned[id] = true
		}
		stages = append(stages, stage)
		remaining = next
	}
	return stages, nil
}

// CriticalPath returns the longest dependency chain by node count,
// ordered from the chain's root to its final dependent. Ties are
// broken lexicographically so the result is stable. Returns nil when
// the graph contains a cycle.
func CriticalPath(nodes []string, deps map[string][]string) []string {
	known := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		known[id] = true
	}

	depth := make(map[string]int, len(nodes))   // longest chain ending at node
	prev := make(map[string]string, len(nodes)) // predecessor on that chain
	visiting := make(map[string]bool, len(nodes))

	var chainTo func(id string) (int, bool)
	chainTo = func(id string) (int, bool) {
		if d, ok := depth[id]; ok {
			return d, true
		}
		if visiting[id] {
			return 0, false
		}
		visiting[id] = true
		defer delete(visiting, id)

		best, bestDep := 0, ""
		sorted := append([]string(nil), deps[id]...)
		sort.Strings(sorted)
		for _, dep := range sorted {
			if !known[dep] {
				continue
			}
			d, ok := chainTo(dep)
			if !ok {
				return 0, false
			}
			if d > best {
				best, bestDep = d, dep
			}
		}
		depth[id] = best + 1
		if bestDep != "" {
			prev[id] = bestDep
		}
		return best + 1, true
	}

	ordered := append([]string(nil), nodes...)
	sort.Strings(ordered)

	tip, tipDepth := "", 0
	for _, id := range ordered {
		d, ok := chainTo(id)
		if !ok {
			return nil
		}
		if d > tipDepth {
			tip, tipDepth = id, d
		}
	}
	if tip == "" {
		return nil
	}

	path := make([]string, 0, tipDepth)
	for id := tip; id != ""; id = prev[id] {
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
