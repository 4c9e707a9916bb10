package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/duckling-ai/duckwatch/internal/api"
	"github.com/duckling-ai/duckwatch/internal/core/config"
	"github.com/duckling-ai/duckwatch/internal/core/logstream"
	"github.com/duckling-ai/duckwatch/internal/core/pipeline"
	"github.com/duckling-ai/duckwatch/internal/core/styles"
	"github.com/duckling-ai/duckwatch/internal/core/task"
	"github.com/duckling-ai/duckwatch/internal/poll"
	"github.com/duckling-ai/duckwatch/internal/realtime"
)

// detailFetchedMsg carries a task snapshot from the detail poller.
type detailFetchedMsg struct {
	task task.Task
	err  error
}

// logFetchedMsg carries a full-log fetch from the detail poller.
type logFetchedMsg struct {
	resp api.LogResponse
	err  error
}

// channelEventMsg carries a structured push event off the channel
// goroutine.
type channelEventMsg struct {
	ev realtime.Event
}

// channelStateMsg carries a channel state transition for the
// connectivity indicator.
type channelStateMsg struct {
	state realtime.State
}

// detailView observes a single task: snapshot and log on the fast poll
// cadence, push events over the realtime channel, both merged through
// the core packages so a stale response can never regress the display.
type detailView struct {
	client  *api.Client
	cfg     *config.Config
	taskID  string
	updates chan<- tea.Msg

	table     *task.Table
	current   task.Task
	loaded    bool
	assembler *logstream.Assembler

	// lines is the display buffer: assembled log lines interleaved with
	// synthetic step markers from push events.
	lines []logstream.Line

	poller  *poll.Poller
	channel *realtime.Channel
	chState realtime.State

	vp     viewport.Model
	width  int
	height int
	review string // glamour-rendered review output, built once
}

func newDetailView(client *api.Client, cfg *config.Config, taskID string, updates chan<- tea.Msg) *detailView {
	return &detailView{
		client:    client,
		cfg:       cfg,
		taskID:    taskID,
		updates:   updates,
		table:     task.NewTable(),
		assembler: logstream.New(taskID),
		vp:        viewport.New(80, 20),
	}
}

// start begins the detail poller and opens the push channel. Idempotent.
func (v *detailView) start() {
	if v.poller == nil {
		client := v.client
		updates := v.updates
		id := v.taskID
		v.poller = poll.Start(v.cfg.Poll.Detail, func(ctx context.Context) {
			t, err := client.GetTask(ctx, id)
			select {
			case updates <- detailFetchedMsg{task: t, err: err}:
			case <-ctx.Done():
				return
			}

			lr, err := client.GetLog(ctx, id)
			select {
			case updates <- logFetchedMsg{resp: lr, err: err}:
			case <-ctx.Done():
			}
		})
	}

	if v.channel == nil {
		updates := v.updates
		v.channel = realtime.New(realtime.Options{
			URL:               v.client.ChannelURL(v.taskID),
			ReconnectDelay:    v.cfg.Realtime.ReconnectDelay,
			KeepaliveInterval: v.cfg.Realtime.KeepaliveInterval,
			// Non-blocking sends: after the program exits nobody drains
			// the bridge, and a dropped push is recovered by the next
			// poll tick anyway.
			OnEvent: func(ev realtime.Event) {
				select {
				case updates <- channelEventMsg{ev: ev}:
				default:
				}
			},
			OnState: func(s realtime.State) {
				select {
				case updates <- channelStateMsg{state: s}:
				default:
				}
			},
			Logger: log.Logger,
		})
		v.channel.Connect()
	}
}

// stop tears down the poller and the push channel, including any pending
// reconnect and keepalive timers. Idempotent.
func (v *detailView) stop() {
	if v.poller != nil {
		v.poller.Stop()
		v.poller = nil
	}
	if v.channel != nil {
		v.channel.Disconnect()
		v.channel = nil
	}
}

func (v *detailView) setSize(width, height int) {
	v.width = width
	v.height = height

	// Header, step list, and footer live above the log pane.
	logHeight := height - v.headerHeight() - 2
	if logHeight < 3 {
		logHeight = 3
	}
	v.vp.Width = width
	v.vp.Height = logHeight
}

func (v *detailView) headerHeight() int {
	def := pipeline.ForMode(v.current.Mode)
	return 4 + len(def.Steps)
}

// handle processes one bridged message from the poller or the channel.
func (v *detailView) handle(msg tea.Msg) {
	switch msg := msg.(type) {
	case detailFetchedMsg:
		if msg.err != nil {
			log.Debug().Err(msg.err).Str("task", v.taskID).Msg("detail fetch failed")
			return
		}
		if msg.task.ID != v.taskID {
			return
		}
		v.current = v.table.Apply(msg.task)
		v.loaded = true
		v.setSize(v.width, v.height)

	case logFetchedMsg:
		if msg.err != nil {
			log.Debug().Err(msg.err).Str("task", v.taskID).Msg("log fetch failed")
			return
		}
		if msg.resp.TaskID != v.taskID {
			return
		}
		v.appendLines(v.assembler.ApplyFull(msg.resp.Log))

	case channelEventMsg:
		v.handleEvent(msg.ev)

	case channelStateMsg:
		v.chState = msg.state
	}
}

// handleEvent folds one push event into the snapshot and log state.
func (v *detailView) handleEvent(ev realtime.Event) {
	switch ev.Event {
	case realtime.EventStatusChange:
		if ev.TaskID != "" && ev.TaskID != v.taskID {
			return
		}
		incoming := v.current
		incoming.ID = v.taskID
		incoming.Status = task.Status(ev.Status)
		if ev.Description != "" {
			incoming.Description = ev.Description
		}
		v.current = v.table.Apply(incoming)
		v.loaded = true

	case realtime.EventStepComplete:
		mark := styles.Success.Render("✓")
		if !ev.Success {
			mark = styles.Error.Render("✗")
		}
		line := fmt.Sprintf("%s %s (%.1fs)", mark, ev.Step, ev.Duration)
		v.appendLines([]logstream.Line{{Text: line, Class: logstream.ClassStep}})

	case realtime.EventLogAppend:
		v.appendLines(v.assembler.ApplyFragment(ev.Log))
	}
}

// appendLines adds fresh lines to the display buffer and re-renders the
// viewport, following the tail only if the reader was already there.
func (v *detailView) appendLines(added []logstream.Line) {
	if len(added) == 0 {
		return
	}
	v.lines = append(v.lines, added...)

	FollowAppend(viewportScroll{vp: &v.vp}, func() {
		var b strings.Builder
		for _, ln := range v.lines {
			b.WriteString(styles.LineStyle(ln.Class).Render(ln.Text))
			b.WriteString("\n")
		}
		v.vp.SetContent(b.String())
	})
}

// update forwards scroll keys and other messages to the viewport.
func (v *detailView) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	v.vp, cmd = v.vp.Update(msg)
	return cmd
}

func (v *detailView) render() string {
	var b strings.Builder

	if !v.loaded {
		b.WriteString(styles.Muted.Render("Loading task "+shortID(v.taskID)+"…") + "\n")
		return b.String()
	}

	t := v.current

	b.WriteString(fmt.Sprintf("%s %s %s  %s\n",
		styles.StatusDot(t.Status),
		styles.StatusStyle(t.Status).Render(string(t.Status)),
		styles.Muted.Render(shortID(t.ID)),
		v.connectivity(),
	))
	b.WriteString(clip(t.Description, max(20, v.width-2)) + "\n\n")

	def := pipeline.ForMode(t.Mode)
	states := def.States(t.Status, t.IterationsUsed)
	for i, label := range def.Steps {
		var marker string
		switch states[i] {
		case pipeline.StepDone:
			marker = styles.Success.Render("✓")
		case pipeline.StepActive:
			marker = styles.Info.Render("▶")
		case pipeline.StepFailed:
			marker = styles.Error.Render("✗")
		default:
			marker = styles.Muted.Render("·")
		}
		b.WriteString(fmt.Sprintf(" %s %s\n", marker, label))
	}
	b.WriteString("\n")

	if t.Status == task.StatusCompleted && t.ReviewOutput != "" {
		b.WriteString(v.renderReview(t.ReviewOutput))
		return b.String()
	}

	if t.ErrorMessage != "" {
		b.WriteString(styles.Error.Render(t.ErrorMessage) + "\n")
	}

	b.WriteString(v.vp.View())
	return b.String()
}

// connectivity is the push channel indicator in the header. Polling
// keeps the view correct either way; the indicator only says whether
// updates are immediate.
func (v *detailView) connectivity() string {
	switch v.chState {
	case realtime.StateOpen:
		return styles.Success.Render("⇅ live")
	case realtime.StateConnecting:
		return styles.Warning.Render("⇅ connecting")
	default:
		return styles.Muted.Render("⇅ polling")
	}
}

// renderReview renders the markdown review report once and caches it.
func (v *detailView) renderReview(md string) string {
	if v.review != "" {
		return v.review
	}
	wrapWidth := max(v.width-4, 20)
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		log.Debug().Err(err).Msg("markdown renderer unavailable, showing raw report")
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		log.Debug().Err(err).Msg("review markdown render failed")
		return md
	}
	v.review = out
	return v.review
}
