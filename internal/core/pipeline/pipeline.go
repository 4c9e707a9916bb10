// Package pipeline maps a task's mode and iteration counter onto a named
// step sequence for progress display.
//
// The iteration counter is the only progress signal the orchestrator
// exposes, so the estimate is deliberately coarse: it answers "which step
// is most likely active", never "which step last completed".
package pipeline

import "github.com/duckling-ai/duckwatch/internal/core/task"

// StepState is the rendered state of one step in a sequence.
type StepState int

const (
	StepPending StepState = iota
	StepActive
	StepDone
	StepFailed
)

// Definition is a fixed, ordered sequence of step labels for one task mode.
type Definition struct {
	Mode  task.Mode
	Steps []string

	// maxIterations scales the iteration counter onto the step sequence.
	// It is a display constant, unrelated to the per-task iteration limit.
	maxIterations int
}

var (
	codePipeline = Definition{
		Mode: task.ModeCode,
		Steps: []string{
			"Setup workspace",
			"Analyze codebase",
			"Plan changes",
			"Write code",
			"Lint",
			"Run tests",
			"Commit & push",
			"Create pull request",
		},
		maxIterations: 8,
	}

	reviewPipeline = Definition{
		Mode: task.ModeReview,
		Steps: []string{
			"Clone repository",
			"Scan inventory",
			"Analyze code",
			"Synthesize findings",
			"Write report",
		},
		maxIterations: 4,
	}

	peerReviewPipeline = Definition{
		Mode: task.ModePeerReview,
		Steps: []string{
			"Clone repository",
			"Diff branches",
			"Review changes",
			"Write report",
		},
		maxIterations: 4,
	}
)

// ForMode returns the step sequence for a task mode. Unknown modes fall
// back to the code pipeline.
func ForMode(m task.Mode) Definition {
	switch m {
	case task.ModeReview:
		return reviewPipeline
	case task.ModePeerReview:
		return peerReviewPipeline
	default:
		return codePipeline
	}
}

// Index estimates the active step for the given status and iteration
// counter. While the task is live (or ended early) the result lies in
// [0, len(Steps)-1]; it equals len(Steps) only for a completed task.
func (d Definition) Index(status task.Status, iterations int) int {
	n := len(d.Steps)
	switch status {
	case task.StatusCompleted:
		return n
	case task.StatusPending, task.StatusClaimingVM:
		return 0
	}

	if iterations < 0 {
		iterations = 0
	}
	idx := iterations * n / d.maxIterations
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}

// States renders the whole sequence for display. For a failed task the
// estimated index is marked failed, everything before it done, and
// everything after it untouched. A running task with a zero iteration
// counter shows step 1 in progress, never "no step".
func (d Definition) States(status task.Status, iterations int) []StepState {
	n := len(d.Steps)
	states := make([]StepState, n)
	idx := d.Index(status, iterations)

	switch status {
	case task.StatusCompleted:
		for i := range states {
			states[i] = StepDone
		}
	case task.StatusFailed:
		for i := 0; i < idx; i++ {
			states[i] = StepDone
		}
		states[idx] = StepFailed
	case task.StatusCancelled, task.StatusPending, task.StatusClaimingVM:
		for i := 0; i < idx; i++ {
			states[i] = StepDone
		}
	default:
		for i := 0; i < idx; i++ {
			states[i] = StepDone
		}
		states[idx] = StepActive
	}

	return states
}
