package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duckling-ai/duckwatch/internal/api"
	"github.com/duckling-ai/duckwatch/internal/core/task"
	"github.com/duckling-ai/duckwatch/pkg/tuitest"
)

func newTestTasksView() *tasksView {
	client := api.New("http://localhost:0", time.Second, zerolog.Nop())
	return newTasksView(client, time.Hour, make(chan tea.Msg, 16))
}

func TestTasksView_handleFetched_replaces_rows(t *testing.T) {
	v := newTestTasksView()

	v.handleFetched(tasksFetchedMsg{list: api.TaskList{Tasks: []task.Task{
		{ID: "a", Status: task.StatusRunning, Description: "first"},
		{ID: "b", Status: task.StatusPending, Description: "second"},
	}}})

	require.Len(t, v.rows, 2)
	assert.False(t, v.stale)
}

func TestTasksView_handleFetched_keeps_terminal_status_sticky(t *testing.T) {
	v := newTestTasksView()

	v.handleFetched(tasksFetchedMsg{list: api.TaskList{Tasks: []task.Task{
		{ID: "a", Status: task.StatusCompleted, IterationsUsed: 5},
	}}})

	// A stale page claiming the task is still running must not win.
	v.handleFetched(tasksFetchedMsg{list: api.TaskList{Tasks: []task.Task{
		{ID: "a", Status: task.StatusRunning, IterationsUsed: 4},
	}}})

	require.Len(t, v.rows, 1)
	assert.Equal(t, task.StatusCompleted, v.rows[0].Status)
	assert.Equal(t, 5, v.rows[0].IterationsUsed)
}

func TestTasksView_handleFetched_error_marks_stale(t *testing.T) {
	v := newTestTasksView()

	v.handleFetched(tasksFetchedMsg{list: api.TaskList{Tasks: []task.Task{{ID: "a"}}}})
	v.handleFetched(tasksFetchedMsg{err: errors.New("connection refused")})

	// Last good rows survive a failed refresh.
	assert.Len(t, v.rows, 1)
	assert.True(t, v.stale)
	assert.Contains(t, tuitest.StripANSI(v.render(24)), "stale")
}

func TestTasksView_cursor_clamps_to_rows(t *testing.T) {
	v := newTestTasksView()
	v.handleFetched(tasksFetchedMsg{list: api.TaskList{Tasks: []task.Task{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}}})

	v.moveCursor(-5)
	assert.Equal(t, 0, v.cursor)

	v.moveCursor(10)
	assert.Equal(t, 2, v.cursor)

	sel, ok := v.selected()
	require.True(t, ok)
	assert.Equal(t, "c", sel.ID)

	// Shrinking the list pulls the cursor back in range.
	v.handleFetched(tasksFetchedMsg{list: api.TaskList{Tasks: []task.Task{{ID: "a"}}}})
	assert.Equal(t, 0, v.cursor)
}

func TestTasksView_selected_on_empty_list(t *testing.T) {
	v := newTestTasksView()
	_, ok := v.selected()
	assert.False(t, ok)
}

func TestTasksView_render_lists_tasks(t *testing.T) {
	v := newTestTasksView()
	v.handleFetched(tasksFetchedMsg{list: api.TaskList{Tasks: []task.Task{
		{ID: "a", Status: task.StatusRunning, Mode: task.ModeCode, Description: "fix the flaky test"},
	}}})

	out := tuitest.StripANSI(v.render(24))
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "fix the flaky test")
}

func TestTasksView_render_empty_state(t *testing.T) {
	v := newTestTasksView()
	assert.Contains(t, tuitest.StripANSI(v.render(24)), "No tasks yet")
}
