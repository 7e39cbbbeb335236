// Package plan expands a build goal into a task graph: a fixed
// template of task kinds for known goal types, validated and staged
// through the graph kernel. Tasks are immutable templates; execution
// status lives in the executor's per-run result table.
package plan

import (
	"fmt"
	"strings"

	"appforge/internal/graph"
)

// TaskType names a task kind the executor knows how to dispatch.
type TaskType string

const (
	TaskCollectRequirements TaskType = "collect-requirements"
	TaskDesignArchitecture  TaskType = "design-architecture"
	TaskBuildFeatureGraph   TaskType = "build-feature-graph"
	TaskGenerateOutput      TaskType = "generate-output"
)

// Status is a task's execution state. The planner only ever produces
// pending tasks; the executor's result table moves them through the
// rest of the lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Task is one node in a task graph. DependsOn holds the ids of tasks
// whose outputs this task consumes; order is preserved as declared.
type Task struct {
	ID          string   `json:"id"`
	Type        TaskType `json:"type"`
	Description string   `json:"description,omitempty"`
	DependsOn   []string `json:"dependsOn,omitempty"`
}

// TaskGraph is an ordered task collection plus the kernel's derived
// validation and staging. A graph whose Validation.IsAcyclic is false
// has empty Stages and must not be executed.
type TaskGraph struct {
	Goal       string                 `json:"goal,omitempty"`
	Tasks      []Task                 `json:"tasks"`
	Validation graph.ValidationResult `json:"validation"`
	Stages     [][]string             `json:"stages,omitempty"`
}

// Options steers Plan. TaskType selects the expansion template;
// unknown types get a single-task graph of that type. Context carries
// optional extra inputs for the backend and may be nil.
type Options struct {
	TaskType string
	Context  map[string]string
}

// GoalTypeSaaSApp is the goal type with a full decomposition template.
const GoalTypeSaaSApp = "build_saas_app"

// templates maps a goal type to its task expansion. Dependency shape
// is part of the template.
var templates = map[string][]Task{
	GoalTypeSaaSApp: {
		{ID: "collect-requirements", Type: TaskCollectRequirements, Description: "turn the goal into a structured intake"},
		{ID: "design-architecture", Type: TaskDesignArchitecture, Description: "derive the architecture from the intake", DependsOn: []string{"collect-requirements"}},
		{ID: "build-feature-graph", Type: TaskBuildFeatureGraph, Description: "stage the features as a dependency graph", DependsOn: []string{"design-architecture"}},
		{ID: "generate-output", Type: TaskGenerateOutput, Description: "emit scaffolding specs per feature", DependsOn: []string{"build-feature-graph"}},
	},
}

// Plan expands goal into a task graph for the given options. Unknown
// dependency ids are an input error; a cyclic result is not an error
// here (the executor refuses it), so tests can inject cycles through
// NewGraph and still observe the kernel's verdict.
func Plan(goal string, opts Options) (*TaskGraph, error) {
	goalType := strings.TrimSpace(opts.TaskType)
	if goalType == "" {
		goalType = GoalTypeSaaSApp
	}

	tmpl, ok := templates[goalType]
	if !ok {
		// Custom goal types get a single task of that type and let the
		// executor's dispatch decide what to do with it.
		tmpl = []Task{{
			ID:          goalType,
			Type:        TaskType(goalType),
			Description: "custom goal type " + goalType,
		}}
	}

	tasks := make([]Task, len(tmpl))
	copy(tasks, tmpl)

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("plan: task with empty id in template %q", goalType)
		}
		if known[t.ID] {
			return nil, fmt.Errorf("plan: duplicate task id %q", t.ID)
		}
		known[t.ID] = true
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if !known[dep] {
				return nil, fmt.Errorf("plan: task %q depends on unknown task %q", t.ID, dep)
			}
		}
	}

	g := NewGraph(tasks)
	g.Goal = goal
	return g, nil
}

// Single builds the minimal graph for an atomic goal: one
// collect-requirements task, one stage.
func Single(goal string) *TaskGraph {
	g := NewGraph([]Task{{
		ID:          "collect-requirements",
		Type:        TaskCollectRequirements,
		Description: "handle the goal as a single unit",
	}})
	g.Goal = goal
	return g
}

// NewGraph builds a graph from raw tasks and derives validation and
// staging. It accepts anything, including cyclic edge lists, so the
// kernel's verdict stays independent of how the graph was built.
func NewGraph(tasks []Task) *TaskGraph {
	g := &TaskGraph{Tasks: append([]Task(nil), tasks...)}
	ids := make([]string, 0, len(g.Tasks))
	deps := make(map[string][]string, len(g.Tasks))
	for _, t := range g.Tasks {
		ids = append(ids, t.ID)
		deps[t.ID] = t.DependsOn
	}
	g.Validation = graph.Validate(ids, deps)
	if g.Validation.IsAcyclic {
		stages, err := graph.Stages(ids, deps)
		if err == nil {
			g.Stages = stages
		}
	}
	return g
}

// Lookup returns the task with the given id.
func (g *TaskGraph) Lookup(id string) (Task, bool) {
	if g == nil {
		return Task{}, false
	}
	for _, t := range g.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Deps returns the dependency map used for staging.
func (g *TaskGraph) Deps() map[string][]string {
	if g == nil {
		return nil
	}
	deps := make(map[string][]string, len(g.Tasks))
	for _, t := range g.Tasks {
		deps[t.ID] = t.DependsOn
	}
	return deps
}
