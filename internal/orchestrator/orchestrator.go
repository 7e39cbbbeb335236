// Package orchestrator runs the full goal lifecycle: classify the
// goal, expand it into a task graph, execute the graph against the
// builder backend and verify whatever artifacts came out. Every goal
// goes through all four phases; atomic goals just get a one-task
// graph instead of the full decomposition.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"appforge/internal/artifact"
	"appforge/internal/artifactstore"
	"appforge/internal/atomizer"
	"appforge/internal/builder"
	"appforge/internal/events"
	"appforge/internal/executor"
	"appforge/internal/plan"
	"appforge/internal/runstore"
	"appforge/internal/verify"
)

// Solution is the complete outcome of one Solve call.
type Solution struct {
	RunID        string                   `json:"runId"`
	Goal         string                   `json:"goal"`
	Atomization  atomizer.Classification  `json:"atomization"`
	Plan         *plan.TaskGraph          `json:"plan"`
	Execution    *executor.PipelineResult `json:"execution"`
	Verification verify.Result            `json:"verification"`
	Success      bool                     `json:"success"`
	Reason       string                   `json:"reason,omitempty"`
	StartedAt    time.Time                `json:"startedAt"`
	CompletedAt  time.Time                `json:"completedAt"`
}

// Orchestrator wires the phases together. Builder is required; the
// stores and emitter are optional and degrade to no-ops.
type Orchestrator struct {
	Builder     builder.Interface
	GoalType    string // plan template; empty selects the default
	TaskTimeout time.Duration
	Emitter     events.Emitter
	Artifacts   artifactstore.Store
	Runs        runstore.Store
}

// Solve takes a goal through classification, planning, execution and
// verification. The returned Solution is always populated; the error
// is reserved for planning-input problems.
func (o *Orchestrator) Solve(ctx context.Context, goal string) (*Solution, error) {
	sol := &Solution{
		RunID:     uuid.NewString(),
		Goal:      goal,
		StartedAt: time.Now(),
	}

	sol.Atomization = atomizer.Classify(goal)

	if sol.Atomization.IsAtomic {
		sol.Plan = plan.Single(goal)
	} else {
		g, err := plan.Plan(goal, plan.Options{TaskType: o.GoalType})
		if err != nil {
			return nil, fmt.Errorf("orchestrator: plan goal: %w", err)
		}
		sol.Plan = g
	}

	exec := &executor.Executor{
		Builder:     o.Builder,
		TaskTimeout: o.TaskTimeout,
		Emitter:     o.Emitter,
		Store:       o.Artifacts,
	}
	sol.Execution = exec.ExecuteRun(ctx, sol.RunID, sol.Plan, goal)

	sol.Verification = verify.Artifacts(
		sol.Execution.Artifacts(),
		verify.WithRequired(requiredArtifacts(sol.Plan)...),
	)

	sol.Success = sol.Execution.Success && sol.Verification.Passed
	sol.Reason = failureReason(sol)
	sol.CompletedAt = time.Now()

	o.saveRecord(ctx, sol)
	return sol, nil
}

// requiredArtifacts maps the planned task types to the artifact names
// verification should demand. A one-task atomic run only owes an
// intake; demanding the full bundle would fail runs that never
// planned to produce it.
func requiredArtifacts(g *plan.TaskGraph) []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, t := range g.Tasks {
		switch t.Type {
		case plan.TaskCollectRequirements:
			add(artifact.NameIntake)
		case plan.TaskDesignArchitecture:
			add(artifact.NameArchitecture)
		case plan.TaskBuildFeatureGraph:
			add(artifact.NameFeatureGraph)
		case plan.TaskGenerateOutput:
			add(artifact.NameScaffolding)
		default:
			// Custom task types dispatch to intake.
			add(artifact.NameIntake)
		}
	}
	return names
}

func failureReason(sol *Solution) string {
	if sol.Success {
		return ""
	}
	if sol.Execution.Err != "" {
		return sol.Execution.Err
	}
	if sol.Execution.FirstFailure != "" {
		if tr, ok := sol.Execution.Result(sol.Execution.FirstFailure); ok && tr.Err != "" {
			return fmt.Sprintf("task %s failed: %s", tr.TaskID, tr.Err)
		}
		return fmt.Sprintf("task %s failed", sol.Execution.FirstFailure)
	}
	for _, f := range sol.Verification.Findings {
		if f.Severity == verify.Critical && !f.Passed {
			return fmt.Sprintf("verification failed: %s", f.Message)
		}
	}
	return "run did not succeed"
}

// saveRecord persists the run summary. Storage failures are logged,
// not returned: the solution in hand is already authoritative.
func (o *Orchestrator) saveRecord(ctx context.Context, sol *Solution) {
	if o.Runs == nil {
		return
	}
	statuses := make(map[string]plan.Status, len(sol.Execution.Results))
	for _, tr := range sol.Execution.Results {
		statuses[tr.TaskID] = tr.Status
	}
	rec := runstore.Record{
		RunID:        sol.RunID,
		Goal:         sol.Goal,
		IsAtomic:     sol.Atomization.IsAtomic,
		Success:      sol.Success,
		TaskStatuses: statuses,
		Reason:       sol.Reason,
		StartedAt:    sol.StartedAt,
		CompletedAt:  sol.CompletedAt,
	}
	if err := o.Runs.Save(ctx, rec); err != nil {
		log.Printf("orchestrator: save run record %s: %v", sol.RunID, err)
	}
}
