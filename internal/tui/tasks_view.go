package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/duckling-ai/duckwatch/internal/api"
	"github.com/duckling-ai/duckwatch/internal/core/styles"
	"github.com/duckling-ai/duckwatch/internal/core/task"
	"github.com/duckling-ai/duckwatch/internal/poll"
)

// tasksFetchedMsg carries one page of tasks from the list poller.
type tasksFetchedMsg struct {
	list api.TaskList
	err  error
}

// tasksView is the landing view: a cursor-driven table of tasks kept
// fresh by its own poller.
type tasksView struct {
	client   *api.Client
	interval time.Duration
	updates  chan<- tea.Msg

	table  *task.Table
	rows   []task.Task
	cursor int
	stale  bool
	poller *poll.Poller
}

func newTasksView(client *api.Client, interval time.Duration, updates chan<- tea.Msg) *tasksView {
	return &tasksView{
		client:   client,
		interval: interval,
		updates:  updates,
		table:    task.NewTable(),
	}
}

// start begins polling the task list. Idempotent.
func (v *tasksView) start() {
	if v.poller != nil {
		return
	}
	client := v.client
	updates := v.updates
	v.poller = poll.Start(v.interval, func(ctx context.Context) {
		list, err := client.ListTasks(ctx, 1, 50)
		select {
		case updates <- tasksFetchedMsg{list: list, err: err}:
		case <-ctx.Done():
		}
	})
}

// stop cancels the view's poll timer.
func (v *tasksView) stop() {
	if v.poller != nil {
		v.poller.Stop()
		v.poller = nil
	}
}

// handleFetched merges a fetched page through the snapshot table, so a
// stale response can never walk a terminal task backward.
func (v *tasksView) handleFetched(msg tasksFetchedMsg) tea.Cmd {
	if msg.err != nil {
		// Transport failure: keep showing the last good state.
		v.stale = true
		return nil
	}
	v.stale = false

	rows := make([]task.Task, 0, len(msg.list.Tasks))
	for _, t := range msg.list.Tasks {
		rows = append(rows, v.table.Apply(t))
	}
	v.rows = rows
	if v.cursor >= len(v.rows) {
		v.cursor = max(0, len(v.rows)-1)
	}
	return nil
}

func (v *tasksView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor < 0 {
		v.cursor = 0
	}
	if v.cursor >= len(v.rows) {
		v.cursor = max(0, len(v.rows)-1)
	}
}

// selected returns the task under the cursor.
func (v *tasksView) selected() (task.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.rows) {
		return task.Task{}, false
	}
	return v.rows[v.cursor], true
}

func (v *tasksView) render(height int) string {
	var b strings.Builder

	header := styles.Bold.Render("Tasks")
	if v.stale {
		header += "  " + styles.Muted.Render("(stale)")
	}
	b.WriteString(header + "\n\n")

	if len(v.rows) == 0 {
		b.WriteString(styles.Muted.Render("No tasks yet") + "\n")
		return b.String()
	}

	visible := v.rows
	if height > 6 && len(visible) > height-6 {
		visible = visible[:height-6]
	}

	for i, t := range visible {
		marker := "  "
		if i == v.cursor {
			marker = styles.Bold.Render("> ")
		}
		line := fmt.Sprintf("%s%s %-12s %-11s %3d  %s",
			marker,
			styles.StatusDot(t.Status),
			styles.StatusStyle(t.Status).Render(string(t.Status)),
			t.Mode,
			t.IterationsUsed,
			clip(t.Description, 56),
		)
		b.WriteString(line + "\n")
	}

	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
