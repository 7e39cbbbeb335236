// Package executor walks a staged task graph, running each stage's
// tasks concurrently against the builder backend. Task templates stay
// immutable; all execution state lives in a per-run result table, so
// one Executor value is safe for concurrent independent runs.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"appforge/internal/artifact"
	"appforge/internal/artifactstore"
	"appforge/internal/builder"
	"appforge/internal/events"
	"appforge/internal/plan"
)

// TaskResult is the terminal record for one task in one run.
type TaskResult struct {
	TaskID      string      `json:"taskId"`
	Status      plan.Status `json:"status"`
	Output      any         `json:"output,omitempty"`
	Err         string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"startedAt,omitempty"`
	CompletedAt time.Time   `json:"completedAt,omitempty"`
}

// PipelineResult aggregates one run: per-task results in graph order,
// overall success (true only when every task succeeded) and the id of
// the first failed task, if any.
type PipelineResult struct {
	RunID        string          `json:"runId"`
	Graph        *plan.TaskGraph `json:"graph"`
	Results      []TaskResult    `json:"results"`
	Success      bool            `json:"success"`
	FirstFailure string          `json:"firstFailure,omitempty"`
	Err          string          `json:"error,omitempty"`
}

// Result returns the record for one task id.
func (r *PipelineResult) Result(taskID string) (TaskResult, bool) {
	if r == nil {
		return TaskResult{}, false
	}
	for _, tr := range r.Results {
		if tr.TaskID == taskID {
			return tr, true
		}
	}
	return TaskResult{}, false
}

// Artifacts collects the typed outputs produced during the run, keyed
// by canonical artifact name. Tasks that did not run contribute
// nothing.
func (r *PipelineResult) Artifacts() map[string]any {
	out := make(map[string]any)
	if r == nil {
		return out
	}
	for _, tr := range r.Results {
		if tr.Status != plan.StatusSucceeded || tr.Output == nil {
			continue
		}
		switch v := tr.Output.(type) {
		case *artifact.Intake:
			out[artifact.NameIntake] = v
		case *artifact.Architecture:
			out[artifact.NameArchitecture] = v
		case *artifact.FeatureGraph:
			out[artifact.NameFeatureGraph] = v
		case []artifact.ScaffoldingSpec:
			out[artifact.NameScaffolding] = v
		}
	}
	return out
}

// Executor runs task graphs against a builder backend. Builder is the
// only required field; everything else degrades to a no-op when
// unset. TaskTimeout > 0 bounds each builder call, converting expiry
// into a task failure rather than hanging the stage.
type Executor struct {
	Builder     builder.Interface
	TaskTimeout time.Duration
	Emitter     events.Emitter
	Store       artifactstore.Store
}

// Execute runs the graph under a fresh run id.
func (e *Executor) Execute(ctx context.Context, g *plan.TaskGraph, goal string) *PipelineResult {
	return e.ExecuteRun(ctx, uuid.NewString(), g, goal)
}

// runState is the per-run result table. The graph itself is never
// mutated.
type runState struct {
	mu      sync.Mutex
	results map[string]*TaskResult
}

func (s *runState) get(id string) TaskResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[id]; ok {
		return *r
	}
	return TaskResult{TaskID: id, Status: plan.StatusPending}
}

func (s *runState) set(r TaskResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.TaskID] = &r
}

// ExecuteRun runs the graph under the caller's run id. A cyclic graph
// is refused up front with a structural error and zero builder calls.
func (e *Executor) ExecuteRun(ctx context.Context, runID string, g *plan.TaskGraph, goal string) *PipelineResult {
	res := &PipelineResult{RunID: runID, Graph: g}
	if g == nil {
		res.Err = "executor: graph is nil"
		return res
	}
	for _, t := range g.Tasks {
		res.Results = append(res.Results, TaskResult{TaskID: t.ID, Status: plan.StatusPending})
	}
	if !g.Validation.IsAcyclic {
		res.Err = fmt.Sprintf("executor: graph is cyclic through %v", g.Validation.CycleMembers)
		return res
	}

	e.emit(events.Event{RunID: runID, Type: events.RunStarted, Message: goal, At: time.Now()})

	state := &runState{results: make(map[string]*TaskResult, len(g.Tasks))}

	if e.Builder == nil {
		// Configuration error: uniform failure across all tasks, no
		// skip cascade and no crash.
		for _, t := range g.Tasks {
			state.set(TaskResult{
				TaskID: t.ID,
				Status: plan.StatusFailed,
				Err:    "executor: builder interface is not configured",
			})
		}
	} else {
		for si, stage := range g.Stages {
			e.emit(events.Event{RunID: runID, Type: events.StageStarted, Stage: si, At: time.Now()})
			var wg sync.WaitGroup
			for _, taskID := range stage {
				task, ok := g.Lookup(taskID)
				if !ok {
					state.set(TaskResult{TaskID: taskID, Status: plan.StatusFailed, Err: "executor: staged task missing from graph"})
					continue
				}
				if blocked, cause := e.blockedBy(task, state); blocked {
					state.set(TaskResult{
						TaskID: task.ID,
						Status: plan.StatusSkipped,
						Err:    fmt.Sprintf("skipped: dependency %s did not succeed", cause),
					})
					e.emit(events.Event{RunID: runID, Type: events.TaskSkipped, TaskID: task.ID, Stage: si, Message: cause, At: time.Now()})
					continue
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					e.runTask(ctx, runID, si, task, goal, g, state)
				}()
			}
			wg.Wait()
			e.emit(events.Event{RunID: runID, Type: events.StageCompleted, Stage: si, At: time.Now()})
		}
	}

	res.Success = true
	for i := range res.Results {
		final := state.get(res.Results[i].TaskID)
		res.Results[i] = final
		if final.Status != plan.StatusSucceeded {
			res.Success = false
		}
		if final.Status == plan.StatusFailed && res.FirstFailure == "" {
			res.FirstFailure = final.TaskID
		}
	}

	e.emit(events.Event{RunID: runID, Type: events.RunCompleted, Message: fmt.Sprintf("success=%t", res.Success), At: time.Now()})
	return res
}

// blockedBy reports whether any direct dependency ended in a
// non-success state. Stage ordering guarantees the dependencies are
// terminal by the time this task is considered.
func (e *Executor) blockedBy(task plan.Task, state *runState) (bool, string) {
	for _, dep := range task.DependsOn {
		if r := state.get(dep); r.Status != plan.StatusSucceeded {
			return true, dep
		}
	}
	return false, ""
}

func (e *Executor) runTask(ctx context.Context, runID string, stage int, task plan.Task, goal string, g *plan.TaskGraph, state *runState) {
	started := time.Now()
	state.set(TaskResult{TaskID: task.ID, Status: plan.StatusRunning, StartedAt: started})
	e.emit(events.Event{RunID: runID, Type: events.TaskStarted, TaskID: task.ID, Stage: stage, At: started})

	output, err := e.dispatchBounded(ctx, task, goal, g, state)

	result := TaskResult{TaskID: task.ID, StartedAt: started, CompletedAt: time.Now()}
	if err != nil {
		result.Status = plan.StatusFailed
		result.Err = err.Error()
		state.set(result)
		log.Printf("executor: task %s failed: %v", task.ID, err)
		e.emit(events.Event{RunID: runID, Type: events.TaskFailed, TaskID: task.ID, Stage: stage, Message: err.Error(), At: result.CompletedAt})
		return
	}
	result.Status = plan.StatusSucceeded
	result.Output = output
	state.set(result)
	e.persist(ctx, runID, output)
	e.emit(events.Event{RunID: runID, Type: events.TaskSucceeded, TaskID: task.ID, Stage: stage, At: result.CompletedAt})
}

// dispatchBounded wraps dispatch with panic recovery and the optional
// per-task deadline. On expiry the task fails and the pipeline moves
// on; the in-flight builder call is abandoned, not interrupted.
func (e *Executor) dispatchBounded(ctx context.Context, task plan.Task, goal string, g *plan.TaskGraph, state *runState) (any, error) {
	type outcome struct {
		output any
		err    error
	}

	callCtx := ctx
	cancel := func() {}
	if e.TaskTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.TaskTimeout)
	}
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("task %s panicked: %v", task.ID, r)}
			}
		}()
		out, err := e.dispatch(callCtx, task, goal, g, state)
		done <- outcome{output: out, err: err}
	}()

	select {
	case o := <-done:
		return o.output, o.err
	case <-callCtx.Done():
		if e.TaskTimeout > 0 && callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("task %s timed out after %s", task.ID, e.TaskTimeout)
		}
		return nil, callCtx.Err()
	}
}

// dispatch routes the task type to the matching builder operation,
// gathering typed inputs from the dependency closure's recorded
// outputs. Custom task types route to Intake: the goal is handed to
// the backend as a single unit.
func (e *Executor) dispatch(ctx context.Context, task plan.Task, goal string, g *plan.TaskGraph, state *runState) (any, error) {
	switch task.Type {
	case plan.TaskCollectRequirements:
		return e.Builder.Intake(ctx, builder.IntakeRequest{Goal: goal})

	case plan.TaskDesignArchitecture:
		in, ok := intakeFromDeps(task, g, state)
		if !ok {
			return nil, fmt.Errorf("task %s: no intake output among dependencies", task.ID)
		}
		return e.Builder.Architecture(ctx, in)

	case plan.TaskBuildFeatureGraph:
		in, ok := intakeFromDeps(task, g, state)
		if !ok {
			return nil, fmt.Errorf("task %s: no intake output among dependencies", task.ID)
		}
		arch, ok := architectureFromDeps(task, g, state)
		if !ok {
			return nil, fmt.Errorf("task %s: no architecture output among dependencies", task.ID)
		}
		return e.Builder.FeatureGraph(ctx, in, arch)

	case plan.TaskGenerateOutput:
		fg, ok := featureGraphFromDeps(task, g, state)
		if !ok {
			return nil, fmt.Errorf("task %s: no feature graph output among dependencies", task.ID)
		}
		arch, ok := architectureFromDeps(task, g, state)
		if !ok {
			return nil, fmt.Errorf("task %s: no architecture output among dependencies", task.ID)
		}
		return e.Builder.Scaffolding(ctx, fg, arch)

	default:
		return e.Builder.Intake(ctx, builder.IntakeRequest{Goal: goal, Context: map[string]string{"taskType": string(task.Type)}})
	}
}

// depClosure walks the transitive dependency set of a task in BFS
// order, nearest dependencies first.
func depClosure(task plan.Task, g *plan.TaskGraph) []string {
	var order []string
	seen := map[string]bool{}
	queue := append([]string(nil), task.DependsOn...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
		if dep, ok := g.Lookup(id); ok {
			queue = append(queue, dep.DependsOn...)
		}
	}
	return order
}

func intakeFromDeps(task plan.Task, g *plan.TaskGraph, state *runState) (*artifact.Intake, bool) {
	for _, id := range depClosure(task, g) {
		if v, ok := state.get(id).Output.(*artifact.Intake); ok {
			return v, true
		}
	}
	return nil, false
}

func architectureFromDeps(task plan.Task, g *plan.TaskGraph, state *runState) (*artifact.Architecture, bool) {
	for _, id := range depClosure(task, g) {
		if v, ok := state.get(id).Output.(*artifact.Architecture); ok {
			return v, true
		}
	}
	return nil, false
}

func featureGraphFromDeps(task plan.Task, g *plan.TaskGraph, state *runState) (*artifact.FeatureGraph, bool) {
	for _, id := range depClosure(task, g) {
		if v, ok := state.get(id).Output.(*artifact.FeatureGraph); ok {
			return v, true
		}
	}
	return nil, false
}

func (e *Executor) emit(ev events.Event) {
	if e.Emitter != nil {
		e.Emitter.Emit(ev)
	}
}

// persist writes a produced artifact to the configured store. Storage
// failures are logged, not fatal: the run's in-memory results remain
// authoritative.
func (e *Executor) persist(ctx context.Context, runID string, output any) {
	if e.Store == nil || output == nil {
		return
	}
	var name string
	switch output.(type) {
	case *artifact.Intake:
		name = artifact.NameIntake
	case *artifact.Architecture:
		name = artifact.NameArchitecture
	case *artifact.FeatureGraph:
		name = artifact.NameFeatureGraph
	case []artifact.ScaffoldingSpec:
		name = artifact.NameScaffolding
	default:
		return
	}
	b, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Printf("executor: encode artifact %s: %v", name, err)
		return
	}
	if err := e.Store.Put(ctx, runID, name+".json", b); err != nil {
		log.Printf("executor: persist artifact %s: %v", name, err)
	}
}
