package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/duckling-ai/duckwatch/internal/api"
	"github.com/duckling-ai/duckwatch/internal/core/styles"
	"github.com/duckling-ai/duckwatch/internal/poll"
)

// fleetFetchedMsg carries the dashboard summaries from the fleet poller.
type fleetFetchedMsg struct {
	pool   api.PoolStats
	health api.Health
	err    error
}

// fleetView shows the warm pool and health summaries on an independent
// cadence from the per-task views.
type fleetView struct {
	client   *api.Client
	interval time.Duration
	updates  chan<- tea.Msg

	pool   api.PoolStats
	health api.Health
	loaded bool
	stale  bool
	poller *poll.Poller
}

func newFleetView(client *api.Client, interval time.Duration, updates chan<- tea.Msg) *fleetView {
	return &fleetView{
		client:   client,
		interval: interval,
		updates:  updates,
	}
}

// start begins polling both dashboard endpoints concurrently. Idempotent.
func (v *fleetView) start() {
	if v.poller != nil {
		return
	}
	client := v.client
	updates := v.updates
	v.poller = poll.Start(v.interval, func(ctx context.Context) {
		var msg fleetFetchedMsg

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			msg.pool, err = client.PoolStats(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			msg.health, err = client.Health(gctx)
			return err
		})
		msg.err = g.Wait()

		select {
		case updates <- msg:
		case <-ctx.Done():
		}
	})
}

// stop cancels the view's poll timer.
func (v *fleetView) stop() {
	if v.poller != nil {
		v.poller.Stop()
		v.poller = nil
	}
}

func (v *fleetView) handleFetched(msg fleetFetchedMsg) {
	if msg.err != nil {
		v.stale = true
		return
	}
	v.stale = false
	v.loaded = true
	v.pool = msg.pool
	v.health = msg.health
}

func (v *fleetView) render() string {
	var b strings.Builder

	header := styles.Bold.Render("Fleet")
	if v.stale {
		header += "  " + styles.Muted.Render("(stale)")
	}
	b.WriteString(header + "\n\n")

	if !v.loaded {
		b.WriteString(styles.Muted.Render("Loading…") + "\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  Backend:        %s\n", v.pool.Backend))
	b.WriteString(fmt.Sprintf("  Target size:    %d\n", v.pool.TargetPoolSize))
	b.WriteString(fmt.Sprintf("  Ready VMs:      %s\n", styles.Success.Render(fmt.Sprintf("%d", v.pool.ReadyVMs))))
	b.WriteString(fmt.Sprintf("  Claimed VMs:    %s\n", styles.Info.Render(fmt.Sprintf("%d", v.pool.ClaimedVMs))))
	b.WriteString(fmt.Sprintf("  Creating VMs:   %s\n", styles.Warning.Render(fmt.Sprintf("%d", v.pool.CreatingVMs))))
	b.WriteString(fmt.Sprintf("  Error VMs:      %s\n", styles.Error.Render(fmt.Sprintf("%d", v.pool.ErrorVMs))))
	b.WriteString(fmt.Sprintf("  Avg claim time: %.1fms\n", v.pool.AvgClaimTimeMS))

	b.WriteString(fmt.Sprintf("\n  Health: %s (queue connected: %v)\n", v.health.Status, v.health.QueueConnected))
	return b.String()
}
