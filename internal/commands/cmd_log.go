package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/duckling-ai/duckwatch/internal/core/logstream"
	"github.com/duckling-ai/duckwatch/internal/core/styles"
)

type LogCmd struct {
	flags *Flags

	follow bool
}

func NewLogCmd(flags *Flags) *LogCmd {
	return &LogCmd{flags: flags}
}

// Register adds the log command to the application
func (cmd *LogCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "log",
		Usage:     "Show a task's execution log",
		UsageText: "duckwatch log <task-id> [-f]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "follow",
				Aliases:     []string{"f"},
				Usage:       "keep streaming until the task finishes",
				Destination: &cmd.follow,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LogCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("task id is required")
	}

	out := c.Root().Writer

	if cmd.follow {
		return followTask(ctx, cmd.flags.API, id, out)
	}

	resp, err := cmd.flags.API.GetLog(ctx, id)
	if err != nil {
		return fmt.Errorf("get log: %w", err)
	}

	fmt.Fprintf(out, "Task %s (%s)\n\n", shortID(resp.TaskID), resp.Status)
	if resp.Log == "" {
		fmt.Fprintln(out, "No log output yet")
		return nil
	}

	assembler := logstream.New(id)
	for _, line := range assembler.ApplyFull(resp.Log) {
		fmt.Fprintln(out, styles.LineStyle(line.Class).Render(line.Text))
	}
	return nil
}
