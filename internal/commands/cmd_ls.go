package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/duckling-ai/duckwatch/internal/core/styles"
	"github.com/duckling-ai/duckwatch/internal/core/task"
	"github.com/duckling-ai/duckwatch/pkg/iojson"
)

type LsCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
	page       int
	perPage    int
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Aliases:   []string{"status"},
		Usage:     "List tasks",
		UsageText: "duckwatch ls [--json] [--page N] [--per-page N]",
		Description: `Displays a table of tasks with their status, mode, iteration count, and PR.

Use --json for LLM-friendly output as JSON lines.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.IntFlag{
				Name:        "page",
				Usage:       "page number",
				Value:       1,
				Destination: &cmd.page,
			},
			&cli.IntFlag{
				Name:        "per-page",
				Usage:       "tasks per page",
				Value:       20,
				Destination: &cmd.perPage,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	list, err := cmd.flags.API.ListTasks(ctx, cmd.page, cmd.perPage)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, t := range list.Tasks {
			if err := iojson.WriteLine(out, t); err != nil {
				return fmt.Errorf("encode task: %w", err)
			}
		}
		return nil
	}

	if len(list.Tasks) == 0 {
		fmt.Fprintf(os.Stderr, "No tasks yet\n")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tMODE\tITER\tDESCRIPTION\tPR")

	for _, t := range list.Tasks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(t.ID),
			styles.StatusStyle(t.Status).Render(string(t.Status)),
			t.Mode,
			t.IterationsUsed,
			clip(t.Description, 48),
			orDash(t.PRURL),
		)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%d total tasks\n", list.Total)
	return nil
}

// shortID truncates a task id the way the orchestrator's own tools do.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// statusSummary renders a one-line status banner for a task.
func statusSummary(t task.Task) string {
	return fmt.Sprintf("%s %s  %s",
		styles.StatusDot(t.Status),
		styles.StatusStyle(t.Status).Render(string(t.Status)),
		clip(t.Description, 60),
	)
}
