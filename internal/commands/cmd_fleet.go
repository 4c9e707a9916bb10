package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/duckling-ai/duckwatch/internal/api"
	"github.com/duckling-ai/duckwatch/internal/core/styles"
	"github.com/duckling-ai/duckwatch/pkg/iojson"
)

type FleetCmd struct {
	flags *Flags

	jsonOutput bool
}

func NewFleetCmd(flags *Flags) *FleetCmd {
	return &FleetCmd{flags: flags}
}

// Register adds the fleet command to the application
func (cmd *FleetCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "fleet",
		Aliases:   []string{"pool"},
		Usage:     "Show warm pool and health summaries",
		UsageText: "duckwatch fleet [--json]",
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

// fleetReport bundles both dashboard endpoints for JSON output.
type fleetReport struct {
	Pool   api.PoolStats `json:"pool"`
	Health api.Health    `json:"health"`
}

func (cmd *FleetCmd) run(ctx context.Context, c *cli.Command) error {
	var report fleetReport

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := cmd.flags.API.PoolStats(gctx)
		if err != nil {
			return fmt.Errorf("pool stats: %w", err)
		}
		report.Pool = stats
		return nil
	})
	g.Go(func() error {
		health, err := cmd.flags.API.Health(gctx)
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}
		report.Health = health
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		return iojson.Write(report)
	}

	fmt.Fprintln(out, styles.Bold.Render("VM Warm Pool"))
	fmt.Fprintf(out, "  Backend:        %s\n", report.Pool.Backend)
	fmt.Fprintf(out, "  Target size:    %d\n", report.Pool.TargetPoolSize)
	fmt.Fprintf(out, "  Ready VMs:      %s\n", styles.Success.Render(fmt.Sprintf("%d", report.Pool.ReadyVMs)))
	fmt.Fprintf(out, "  Claimed VMs:    %s\n", styles.Info.Render(fmt.Sprintf("%d", report.Pool.ClaimedVMs)))
	fmt.Fprintf(out, "  Creating VMs:   %s\n", styles.Warning.Render(fmt.Sprintf("%d", report.Pool.CreatingVMs)))
	fmt.Fprintf(out, "  Error VMs:      %s\n", styles.Error.Render(fmt.Sprintf("%d", report.Pool.ErrorVMs)))
	fmt.Fprintf(out, "  Avg claim time: %.1fms\n", report.Pool.AvgClaimTimeMS)
	fmt.Fprintf(out, "\n  [%s]\n\n", poolBar(report.Pool))

	fmt.Fprintf(out, "Health: %s (queue connected: %v)\n", report.Health.Status, report.Health.QueueConnected)
	return nil
}

// poolBar renders the pool as a row of colored blocks, one per VM slot.
func poolBar(p api.PoolStats) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(styles.Success.Render("█"), max(0, p.ReadyVMs)))
	b.WriteString(strings.Repeat(styles.Info.Render("█"), max(0, p.ClaimedVMs)))
	b.WriteString(strings.Repeat(styles.Warning.Render("░"), max(0, p.CreatingVMs)))

	remaining := p.TargetPoolSize - p.ReadyVMs - p.ClaimedVMs - p.CreatingVMs
	b.WriteString(strings.Repeat("░", max(0, remaining)))
	return b.String()
}
