// Package poll provides per-view periodic refresh. Each observing view
// owns an independent poller so that opening or closing one view cannot
// starve or accelerate another.
package poll

import (
	"context"
	"time"
)

// Default cadences per view purpose. An actively open task detail view
// refreshes faster than the task list; fleet and health summaries run on
// their own cadence.
const (
	ListInterval   = 5 * time.Second
	DetailInterval = 2 * time.Second
	FleetInterval  = 10 * time.Second
)

// RefreshFunc is invoked once immediately on registration and then on
// every tick. The context is cancelled when the poller stops; a refresh
// that outlives its view must observe it and abandon the result.
type RefreshFunc func(ctx context.Context)

// Poller invokes a refresh function on a fixed interval. Each tick runs
// the refresh in its own goroutine: a slow or failed refresh never blocks
// the next tick, and overlapping in-flight refreshes are tolerated.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start registers a refresh function, invokes it immediately, and then
// invokes it every interval until Stop is called.
func Start(interval time.Duration, refresh RefreshFunc) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(p.done)

		go refresh(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go refresh(ctx)
			}
		}
	}()

	return p
}

// Stop cancels the poller's timer and its refresh context. After Stop
// returns no new refresh is started; refreshes already in flight see a
// cancelled context. Stop is idempotent.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}
