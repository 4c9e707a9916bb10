package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/duckling-ai/duckwatch/internal/core/pipeline"
	"github.com/duckling-ai/duckwatch/internal/core/styles"
	"github.com/duckling-ai/duckwatch/pkg/iojson"
)

type ShowCmd struct {
	flags *Flags

	jsonOutput bool
}

func NewShowCmd(flags *Flags) *ShowCmd {
	return &ShowCmd{flags: flags}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show one task's details",
		UsageText: "duckwatch show <task-id> [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("task id is required")
	}

	t, err := cmd.flags.API.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		return iojson.Write(t)
	}

	fmt.Fprintln(out, statusSummary(t))
	fmt.Fprintf(out, "  ID:         %s\n", t.ID)
	fmt.Fprintf(out, "  Mode:       %s\n", t.Mode)
	fmt.Fprintf(out, "  Priority:   %s\n", t.Priority)
	fmt.Fprintf(out, "  Repo:       %s\n", t.RepoURL)
	fmt.Fprintf(out, "  Branch:     %s\n", t.Branch)
	fmt.Fprintf(out, "  Iterations: %d\n", t.IterationsUsed)
	if t.PRURL != "" {
		fmt.Fprintf(out, "  PR:         %s\n", t.PRURL)
	}
	if t.DurationSeconds != nil {
		fmt.Fprintf(out, "  Duration:   %.0fs\n", *t.DurationSeconds)
	}
	if t.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:      %s\n", styles.Error.Render(t.ErrorMessage))
	}

	// Step progress from the iteration heuristic.
	def := pipeline.ForMode(t.Mode)
	states := def.States(t.Status, t.IterationsUsed)
	fmt.Fprintln(out)
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
		fmt.Fprintf(out, "  %s %s\n", marker, label)
	}

	return nil
}
