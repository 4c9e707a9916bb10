// Package task defines the client-side snapshot model for orchestrator
// tasks and the status state machine that guards snapshot merges.
//
// The orchestrator owns all task state; this package only mirrors the last
// server-reported snapshot and decides whether an incoming snapshot is
// allowed to replace the one currently held.
package task

import "time"

// Status is the orchestrator-reported lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusClaimingVM Status = "claiming_vm"
	StatusRunning    Status = "running"
	StatusTesting    Status = "testing"
	StatusCreatingPR Status = "creating_pr"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transitions are accepted for s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsLive reports whether realtime updates and log streaming are meaningful
// for s, i.e. the agent is actively producing output.
func (s Status) IsLive() bool {
	switch s {
	case StatusRunning, StatusTesting, StatusCreatingPR:
		return true
	default:
		return false
	}
}

// Mode selects which pipeline a task runs.
type Mode string

const (
	ModeCode       Mode = "code"
	ModeReview     Mode = "review"
	ModePeerReview Mode = "peer_review"
)

// Priority orders tasks in the orchestrator queue.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Task is one snapshot of a task as reported by GET /api/tasks/{id}.
// Field names mirror the orchestrator's JSON exactly.
type Task struct {
	ID              string     `json:"id"`
	Status          Status     `json:"status"`
	Description     string     `json:"description"`
	RepoURL         string     `json:"repo_url"`
	Branch          string     `json:"branch"`
	TargetBranch    string     `json:"target_branch,omitempty"`
	WorkingBranch   string     `json:"working_branch,omitempty"`
	Priority        Priority   `json:"priority"`
	Mode            Mode       `json:"mode"`
	Source          string     `json:"source,omitempty"`
	RequesterName   string     `json:"requester_name,omitempty"`
	PRURL           string     `json:"pr_url,omitempty"`
	PRNumber        int        `json:"pr_number,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	IterationsUsed  int        `json:"iterations_used"`
	FilesChanged    []string   `json:"files_changed,omitempty"`
	ReviewOutput    string     `json:"review_output,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
}

// ApplySnapshot merges an incoming snapshot into the current one for the
// same task identifier and returns the result. It is pure and total.
//
// Terminal statuses are sticky: once the current snapshot is terminal, a
// later snapshot claiming a different status is treated as an out-of-order
// network response and rejected wholesale. In every other case the server
// is the source of truth and the incoming snapshot replaces the current
// one, except that the iteration counter never moves backward.
func ApplySnapshot(current, incoming Task) Task {
	if current.ID == "" {
		return incoming
	}
	if current.ID != incoming.ID {
		// Different identifier; nothing to merge.
		return incoming
	}
	if current.Status.IsTerminal() && incoming.Status != current.Status {
		return current
	}

	merged := incoming
	if merged.IterationsUsed < current.IterationsUsed {
		merged.IterationsUsed = current.IterationsUsed
	}
	return merged
}

// Table holds the snapshots a single view is observing, keyed by task id.
// It applies the merge rule on every insert so callers never see a terminal
// task move backward.
type Table struct {
	tasks map[string]Task
}

// NewTable returns an empty snapshot table.
func NewTable() *Table {
	return &Table{tasks: make(map[string]Task)}
}

// Apply merges an incoming snapshot and returns the stored result.
func (t *Table) Apply(incoming Task) Task {
	current, ok := t.tasks[incoming.ID]
	if !ok {
		t.tasks[incoming.ID] = incoming
		return incoming
	}
	merged := ApplySnapshot(current, incoming)
	t.tasks[incoming.ID] = merged
	return merged
}

// Get returns the stored snapshot for id, if any.
func (t *Table) Get(id string) (Task, bool) {
	task, ok := t.tasks[id]
	return task, ok
}

// Len returns the number of observed tasks.
func (t *Table) Len() int { return len(t.tasks) }
