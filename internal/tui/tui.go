// Package tui is the interactive task monitor. It renders the task list,
// a per-task detail view with live log streaming, and the fleet summary.
//
// All state mutation happens on the Bubble Tea update loop. Pollers and
// the realtime channel run on their own goroutines and hand results over
// through a single bridge channel, so the merge rules in the core
// packages are the only synchronization the views need.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/duckling-ai/duckwatch/internal/api"
	"github.com/duckling-ai/duckwatch/internal/core/config"
	"github.com/duckling-ai/duckwatch/internal/core/notify"
	"github.com/duckling-ai/duckwatch/internal/core/styles"
)

// viewID identifies the active view.
type viewID int

const (
	viewTasks viewID = iota
	viewDetail
	viewFleet
)

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	cfg    *config.Config
	client *api.Client
	bus    *notify.Bus

	// updates bridges poller goroutines and the realtime channel onto
	// the update loop.
	updates chan tea.Msg

	view   viewID
	tasks  *tasksView
	detail *detailView
	fleet  *fleetView

	keys   keyMap
	width  int
	height int

	toast    string
	quitting bool
}

// New constructs the TUI model. The notification bus feeds the toast
// line; anything published there is user-actionable.
func New(cfg *config.Config, client *api.Client, bus *notify.Bus) *Model {
	m := &Model{
		cfg:     cfg,
		client:  client,
		bus:     bus,
		updates: make(chan tea.Msg, 16),
		keys:    defaultKeyMap(),
	}
	m.tasks = newTasksView(client, cfg.Poll.List, m.updates)
	m.fleet = newFleetView(client, cfg.Poll.Fleet, m.updates)

	bus.Subscribe(func(n notify.Notification) {
		select {
		case m.updates <- notificationMsg{n: n}:
		default:
		}
	})

	return m
}

// notificationMsg carries a bus notification onto the update loop.
type notificationMsg struct {
	n notify.Notification
}

// Init starts the task list poller and the bridge listener.
func (m *Model) Init() tea.Cmd {
	m.tasks.start()
	return m.listen()
}

// listen re-arms the bridge channel receive.
func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// Update handles messages for the TUI.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.detail != nil {
			m.detail.setSize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case notificationMsg:
		m.toast = renderToast(msg.n)
		return m, m.listen()

	case tasksFetchedMsg:
		cmd := m.tasks.handleFetched(msg)
		return m, tea.Batch(cmd, m.listen())

	case fleetFetchedMsg:
		m.fleet.handleFetched(msg)
		return m, m.listen()

	case detailFetchedMsg, logFetchedMsg, channelEventMsg, channelStateMsg:
		if m.detail != nil {
			m.detail.handle(msg)
		}
		return m, m.listen()

	default:
		if m.detail != nil {
			if cmd := m.detail.update(msg); cmd != nil {
				return m, cmd
			}
		}
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matches(msg, m.keys.Quit):
		m.teardown()
		m.quitting = true
		return m, tea.Quit

	case matches(msg, m.keys.Back):
		if m.view == viewDetail {
			m.closeDetail()
			return m, nil
		}
		if m.view == viewFleet {
			m.fleet.stop()
			m.view = viewTasks
			return m, nil
		}
		return m, nil

	case matches(msg, m.keys.Fleet):
		if m.view != viewFleet {
			if m.view == viewDetail {
				m.closeDetail()
			}
			m.view = viewFleet
			m.fleet.start()
		}
		return m, nil

	case matches(msg, m.keys.Open):
		if m.view == viewTasks {
			if t, ok := m.tasks.selected(); ok {
				m.openDetail(t.ID)
			}
		}
		return m, nil

	case matches(msg, m.keys.Cancel):
		return m, m.cancelSelected()

	case matches(msg, m.keys.Up):
		if m.view == viewTasks {
			m.tasks.moveCursor(-1)
		}
		return m, nil

	case matches(msg, m.keys.Down):
		if m.view == viewTasks {
			m.tasks.moveCursor(1)
		}
		return m, nil

	default:
		if m.view == viewDetail && m.detail != nil {
			return m, m.detail.update(msg)
		}
		return m, nil
	}
}

// openDetail switches to the detail view for one task, starting its
// poller and realtime channel.
func (m *Model) openDetail(taskID string) {
	m.detail = newDetailView(m.client, m.cfg, taskID, m.updates)
	m.detail.setSize(m.width, m.height)
	m.detail.start()
	m.view = viewDetail
}

// closeDetail tears down the detail view's poller, reconnect timer, and
// keepalive timer before leaving the view.
func (m *Model) closeDetail() {
	if m.detail != nil {
		m.detail.stop()
		m.detail = nil
	}
	m.view = viewTasks
}

// teardown stops every live timer before quitting.
func (m *Model) teardown() {
	m.tasks.stop()
	m.fleet.stop()
	if m.detail != nil {
		m.detail.stop()
		m.detail = nil
	}
}

// cancelSelected requests cancellation for the task under the cursor (or
// the open detail task). Rejections surface on the notification bus.
func (m *Model) cancelSelected() tea.Cmd {
	var id string
	switch m.view {
	case viewDetail:
		if m.detail != nil {
			id = m.detail.taskID
		}
	case viewTasks:
		if t, ok := m.tasks.selected(); ok {
			id = t.ID
		}
	}
	if id == "" {
		return nil
	}

	client := m.client
	bus := m.bus
	return func() tea.Msg {
		resp, err := client.CancelTask(context.Background(), id)
		if err != nil {
			log.Warn().Err(err).Str("task", id).Msg("cancel rejected")
			bus.Errorf("cancel failed: %v", err)
			return nil
		}
		bus.Infof("task %s: %s", shortID(resp.TaskID), resp.Status)
		return nil
	}
}

// View renders the active view.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.view {
	case viewDetail:
		if m.detail != nil {
			body = m.detail.render()
		}
	case viewFleet:
		body = m.fleet.render()
	default:
		body = m.tasks.render(m.height)
	}

	footer := m.keys.help()
	if m.toast != "" {
		footer = m.toast + "  " + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, styles.Muted.Render(footer))
}

func renderToast(n notify.Notification) string {
	switch n.Level {
	case notify.LevelError:
		return styles.Error.Render(n.Message)
	case notify.LevelWarning:
		return styles.Warning.Render(n.Message)
	default:
		return styles.Info.Render(n.Message)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
