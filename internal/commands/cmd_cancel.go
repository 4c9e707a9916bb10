package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type CancelCmd struct {
	flags *Flags
}

func NewCancelCmd(flags *Flags) *CancelCmd {
	return &CancelCmd{flags: flags}
}

// Register adds the cancel command to the application
func (cmd *CancelCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "cancel",
		Usage:     "Request cancellation of a running or pending task",
		UsageText: "duckwatch cancel <task-id>",
		Action:    cmd.run,
	})

	return app
}

func (cmd *CancelCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("task id is required")
	}

	// A rejected cancel is a direct consequence of a user action, so the
	// error is surfaced as-is rather than retried or swallowed.
	resp, err := cmd.flags.API.CancelTask(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "Task %s: %s\n", shortID(resp.TaskID), resp.Status)
	return nil
}
