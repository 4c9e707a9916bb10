package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/duckling-ai/duckwatch/internal/api"
	"github.com/duckling-ai/duckwatch/internal/core/logstream"
	"github.com/duckling-ai/duckwatch/internal/core/styles"
	"github.com/duckling-ai/duckwatch/internal/poll"
)

// followTask streams a task's log to out until the task reaches a
// terminal status. Transport failures are retried on the next tick and
// never abort the follow; Ctrl+C cancels via ctx.
func followTask(ctx context.Context, client *api.Client, id string, out io.Writer) error {
	type fetchResult struct {
		resp api.LogResponse
		err  error
	}

	updates := make(chan fetchResult, 4)
	poller := poll.Start(poll.DetailInterval, func(ctx context.Context) {
		resp, err := client.GetLog(ctx, id)
		select {
		case updates <- fetchResult{resp: resp, err: err}:
		case <-ctx.Done():
		}
	})
	defer poller.Stop()

	assembler := logstream.New(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-updates:
			if r.err != nil {
				log.Debug().Err(r.err).Str("task", id).Msg("log fetch failed; will retry")
				continue
			}
			for _, line := range assembler.ApplyFull(r.resp.Log) {
				fmt.Fprintln(out, styles.LineStyle(line.Class).Render(line.Text))
			}
			if r.resp.Status.IsTerminal() {
				fmt.Fprintf(out, "\n%s Task %s\n",
					styles.StatusDot(r.resp.Status),
					styles.StatusStyle(r.resp.Status).Render(string(r.resp.Status)))
				return nil
			}
		}
	}
}
