package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/duckling-ai/duckwatch/internal/core/notify"
	"github.com/duckling-ai/duckwatch/internal/tui"
)

type TuiCmd struct {
	flags *Flags
}

func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{flags: flags}
}

// Register adds the tui command to the application
func (cmd *TuiCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tui",
		Usage:     "Open the interactive task monitor",
		UsageText: "duckwatch tui",
		Action:    cmd.Run,
	})

	return app
}

// Run starts the interactive monitor. It is also the default action when
// no subcommand is given.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	bus := notify.NewBus()
	model := tui.New(cmd.flags.Config, cmd.flags.API, bus)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
