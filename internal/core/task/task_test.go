package task

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "status %q", s)
	}

	live := []Status{StatusPending, StatusClaimingVM, StatusRunning, StatusTesting, StatusCreatingPR}
	for _, s := range live {
		assert.False(t, s.IsTerminal(), "status %q", s)
	}
}

func TestStatus_IsLive(t *testing.T) {
	assert.True(t, StatusRunning.IsLive())
	assert.True(t, StatusTesting.IsLive())
	assert.True(t, StatusCreatingPR.IsLive())
	assert.False(t, StatusPending.IsLive())
	assert.False(t, StatusClaimingVM.IsLive())
	assert.False(t, StatusCompleted.IsLive())
}

func TestApplySnapshot_empty_current_accepts_incoming(t *testing.T) {
	incoming := Task{ID: "t1", Status: StatusRunning, IterationsUsed: 3}
	got := ApplySnapshot(Task{}, incoming)
	assert.Equal(t, incoming, got)
}

func TestApplySnapshot_server_replaces_nonterminal(t *testing.T) {
	current := Task{ID: "t1", Status: StatusRunning, IterationsUsed: 2, Description: "old"}
	incoming := Task{ID: "t1", Status: StatusTesting, IterationsUsed: 4, Description: "new"}

	got := ApplySnapshot(current, incoming)
	assert.Equal(t, StatusTesting, got.Status)
	assert.Equal(t, 4, got.IterationsUsed)
	assert.Equal(t, "new", got.Description)
}

func TestApplySnapshot_terminal_is_sticky(t *testing.T) {
	current := Task{ID: "t1", Status: StatusCompleted, IterationsUsed: 5}

	// A stale in-flight response claiming the task is still running must
	// be rejected wholesale.
	stale := Task{ID: "t1", Status: StatusRunning, IterationsUsed: 5}
	got := ApplySnapshot(current, stale)
	assert.Equal(t, current, got)

	// Re-reporting the same terminal status refreshes the snapshot.
	refresh := Task{ID: "t1", Status: StatusCompleted, IterationsUsed: 5, PRURL: "https://example.com/pr/1"}
	got = ApplySnapshot(current, refresh)
	assert.Equal(t, "https://example.com/pr/1", got.PRURL)
}

func TestApplySnapshot_out_of_order_poll_sequence(t *testing.T) {
	// pending -> running(2) -> completed, then a delayed running(5)
	// response arrives last. The task must still read completed.
	cur := Task{}
	for _, snap := range []Task{
		{ID: "t1", Status: StatusPending},
		{ID: "t1", Status: StatusRunning, IterationsUsed: 2},
		{ID: "t1", Status: StatusCompleted, IterationsUsed: 6},
	} {
		cur = ApplySnapshot(cur, snap)
	}
	require.Equal(t, StatusCompleted, cur.Status)

	cur = ApplySnapshot(cur, Task{ID: "t1", Status: StatusRunning, IterationsUsed: 5})
	assert.Equal(t, StatusCompleted, cur.Status)
	assert.Equal(t, 6, cur.IterationsUsed)
}

func TestApplySnapshot_iterations_never_decrease(t *testing.T) {
	current := Task{ID: "t1", Status: StatusRunning, IterationsUsed: 4}
	incoming := Task{ID: "t1", Status: StatusRunning, IterationsUsed: 2}

	got := ApplySnapshot(current, incoming)
	assert.Equal(t, 4, got.IterationsUsed)
}

func TestApplySnapshot_is_idempotent(t *testing.T) {
	current := Task{ID: "t1", Status: StatusRunning, IterationsUsed: 2}
	incoming := Task{ID: "t1", Status: StatusTesting, IterationsUsed: 3}

	once := ApplySnapshot(current, incoming)
	twice := ApplySnapshot(once, incoming)
	assert.Equal(t, once, twice)
}

func TestApplySnapshot_properties(t *testing.T) {
	statuses := []Status{
		StatusPending, StatusClaimingVM, StatusRunning, StatusTesting,
		StatusCreatingPR, StatusCompleted, StatusFailed, StatusCancelled,
	}

	rapid.Check(t, func(t *rapid.T) {
		current := Task{
			ID:             "t1",
			Status:         statuses[rapid.IntRange(0, len(statuses)-1).Draw(t, "cur")],
			IterationsUsed: rapid.IntRange(0, 20).Draw(t, "curIter"),
		}
		incoming := Task{
			ID:             "t1",
			Status:         statuses[rapid.IntRange(0, len(statuses)-1).Draw(t, "inc")],
			IterationsUsed: rapid.IntRange(0, 20).Draw(t, "incIter"),
		}

		got := ApplySnapshot(current, incoming)

		// The iteration counter never moves backward.
		if got.IterationsUsed < current.IterationsUsed {
			t.Fatalf("iterations decreased: %d -> %d", current.IterationsUsed, got.IterationsUsed)
		}

		// A terminal status only changes if replayed identically.
		if current.Status.IsTerminal() && got.Status != current.Status {
			t.Fatalf("terminal status moved: %s -> %s", current.Status, got.Status)
		}

		// Applying the result again is a fixed point.
		again := ApplySnapshot(got, incoming)
		if !reflect.DeepEqual(again, got) {
			t.Fatalf("not idempotent: %+v vs %+v", got, again)
		}
	})
}

func TestTable_Apply_merges_per_id(t *testing.T) {
	tbl := NewTable()

	tbl.Apply(Task{ID: "a", Status: StatusFailed, IterationsUsed: 3})
	got := tbl.Apply(Task{ID: "a", Status: StatusRunning, IterationsUsed: 1})
	assert.Equal(t, StatusFailed, got.Status)

	tbl.Apply(Task{ID: "b", Status: StatusPending})
	assert.Equal(t, 2, tbl.Len())

	b, ok := tbl.Get("b")
	require.True(t, ok)
	assert.Equal(t, StatusPending, b.Status)

	_, ok = tbl.Get("missing")
	assert.False(t, ok)
}
