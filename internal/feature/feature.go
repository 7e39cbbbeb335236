// Package feature builds the feature dependency graph: one node per
// intake feature, typed edges inferred from declared relationships
// and shared data entities, staged through the graph kernel. The
// result is always acyclic; offending hard edges are downgraded to
// soft instead of failing the build.
package feature

import (
	"fmt"
	"strings"

	"appforge/internal/artifact"
	"appforge/internal/graph"
)

// SetupNodeID is the synthetic node inserted when the architecture
// declares shared infrastructure that every feature builds on.
const SetupNodeID = "setup"

// hardEdge tracks one hard edge with enough context to pick a victim
// when a cycle must be broken: lower priority loses, ties resolved by
// insertion order.
type hardEdge struct {
	from     string
	to       string
	priority int
	seq      int
}

// Build constructs the feature graph for the given features and
// architecture. arch may be nil. Duplicate or empty feature ids are
// input errors; everything else degrades to diagnostics.
func Build(features []artifact.Feature, arch *artifact.Architecture) (*artifact.FeatureGraph, error) {
	byID := make(map[string]artifact.Feature, len(features))
	order := make(map[string]int, len(features))
	for i, f := range features {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return nil, fmt.Errorf("feature: feature %d (%q) has no id", i, f.Name)
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("feature: duplicate feature id %q", id)
		}
		f.ID = id
		byID[id] = f
		order[id] = i
	}

	g := &artifact.FeatureGraph{Nodes: make([]artifact.FeatureNode, 0, len(features)+1)}

	withSetup := arch != nil && len(arch.SharedInfrastructure) > 0
	if _, taken := byID[SetupNodeID]; taken && withSetup {
		withSetup = false
		g.Diagnostics = append(g.Diagnostics, "setup node skipped: a feature already uses the id \"setup\"")
	}
	if withSetup {
		g.Nodes = append(g.Nodes, artifact.FeatureNode{
			ID:   SetupNodeID,
			Name: "shared infrastructure setup",
		})
	}

	var hards []hardEdge
	seq := 0
	addHard := func(node *artifact.FeatureNode, to string, priority int) {
		node.Edges = append(node.Edges, artifact.FeatureEdge{To: to, Kind: artifact.EdgeHard})
		hards = append(hards, hardEdge{from: node.ID, to: to, priority: priority, seq: seq})
		seq++
	}

	nodeIdx := make(map[string]int, len(features))
	for _, f := range features {
		f = byID[f.ID]
		node := artifact.FeatureNode{ID: f.ID, Name: f.Name}
		if withSetup {
			addHard(&node, SetupNodeID, f.Priority)
		}
		for _, dep := range f.DependsOn {
			dep = strings.TrimSpace(dep)
			if dep == "" || dep == f.ID {
				continue
			}
			target, known := byID[dep]
			if !known {
				g.Diagnostics = append(g.Diagnostics, fmt.Sprintf("feature %s depends on unknown feature %q; edge dropped", f.ID, dep))
				continue
			}
			addHard(&node, dep, min(f.Priority, target.Priority))
		}
		for _, after := range f.SoftAfter {
			after = strings.TrimSpace(after)
			if after == "" || after == f.ID {
				continue
			}
			if _, known := byID[after]; !known {
				g.Diagnostics = append(g.Diagnostics, fmt.Sprintf("feature %s soft-follows unknown feature %q; edge dropped", f.ID, after))
				continue
			}
			node.Edges = append(node.Edges, artifact.FeatureEdge{To: after, Kind: artifact.EdgeSoft})
		}
		nodeIdx[node.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, node)
	}

	addDataEdges(g, features, order, nodeIdx)

	// Break cycles by downgrading hard edges until the kernel accepts
	// the graph. Soft and data edges never constrain staging, so the
	// loop terminates: each pass removes one hard edge.
	ids := g.NodeIDs()
	for {
		val := graph.Validate(ids, g.HardDeps())
		if val.IsAcyclic {
			g.Validation = val
			break
		}
		victim, ok := pickVictim(hards, val.CycleMembers)
		if !ok {
			// Unreachable: a hard-edge cycle always contains a hard edge.
			return nil, fmt.Errorf("feature: cycle %v has no hard edge to downgrade", val.CycleMembers)
		}
		downgrade(g, victim)
		hards = removeEdge(hards, victim)
		g.Diagnostics = append(g.Diagnostics, fmt.Sprintf(
			"downgraded hard edge %s -> %s (priority %d) to soft to break cycle %v",
			victim.from, victim.to, victim.priority, val.CycleMembers))
	}

	deps := g.HardDeps()
	stages, err := graph.Stages(ids, deps)
	if err != nil {
		return nil, fmt.Errorf("feature: stage features: %w", err)
	}
	g.ExecutionStages = stages
	g.CriticalPath = graph.CriticalPath(ids, deps)
	return g, nil
}

// addDataEdges links features that touch the same data entity: the
// later-declared feature consumes the earlier one's output. Each pair
// is linked at most once, and only when no hard or soft edge already
// relates them in that direction.
func addDataEdges(g *artifact.FeatureGraph, features []artifact.Feature, order map[string]int, nodeIdx map[string]int) {
	producers := make(map[string][]string) // entity -> feature ids in declaration order
	for _, f := range features {
		for _, ent := range f.Entities {
			ent = strings.ToLower(strings.TrimSpace(ent))
			if ent == "" {
				continue
			}
			producers[ent] = append(producers[ent], f.ID)
		}
	}

	linked := make(map[string]bool)
	for _, ids := range producers {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				earlier, later := ids[i], ids[j]
				if order[earlier] > order[later] {
					earlier, later = later, earlier
				}
				pair := later + "\x00" + earlier
				if linked[pair] {
					continue
				}
				linked[pair] = true
				node := &g.Nodes[nodeIdx[later]]
				if hasEdgeTo(node, earlier) {
					continue
				}
				node.Edges = append(node.Edges, artifact.FeatureEdge{To: earlier, Kind: artifact.EdgeData})
			}
		}
	}
}

func hasEdgeTo(node *artifact.FeatureNode, to string) bool {
	for _, e := range node.Edges {
		if e.To == to {
			return true
		}
	}
	return false
}

// pickVictim selects the hard edge to downgrade: among edges whose
// endpoints are both on the reported cycle, the one with the lowest
// priority, earliest-inserted on a tie.
func pickVictim(hards []hardEdge, cycle []string) (hardEdge, bool) {
	onCycle := make(map[string]bool, len(cycle))
	for _, id := range cycle {
		onCycle[id] = true
	}
	var best hardEdge
	found := false
	for _, e := range hards {
		if !onCycle[e.from] || !onCycle[e.to] {
			continue
		}
		if !found || e.priority < best.priority || (e.priority == best.priority && e.seq < best.seq) {
			best = e
			found = true
		}
	}
	return best, found
}

func downgrade(g *artifact.FeatureGraph, victim hardEdge) {
	for i := range g.Nodes {
		if g.Nodes[i].ID != victim.from {
			continue
		}
		for j := range g.Nodes[i].Edges {
			e := &g.Nodes[i].Edges[j]
			if e.To == victim.to && e.Kind == artifact.EdgeHard {
				e.Kind = artifact.EdgeSoft
				return
			}
		}
	}
}

func removeEdge(hards []hardEdge, victim hardEdge) []hardEdge {
	out := hards[:0]
	for _, e := range hards {
		if e.seq == victim.seq {
			continue
		}
		out = append(out, e)
	}
	return out
}
