package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/duckling-ai/duckwatch/internal/api"
	"github.com/duckling-ai/duckwatch/internal/core/task"
	"github.com/duckling-ai/duckwatch/pkg/iojson"
)

type SubmitCmd struct {
	flags *Flags

	// flags
	repo          string
	branch        string
	targetBranch  string
	mode          string
	priority      string
	maxIterations int
	timeout       int
	follow        bool

	reader iojson.FileReader[api.TaskCreate]
}

func NewSubmitCmd(flags *Flags) *SubmitCmd {
	return &SubmitCmd{flags: flags}
}

// Register adds the submit command to the application
func (cmd *SubmitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "submit",
		Aliases:   []string{"run"},
		Usage:     "Submit a new task",
		UsageText: "duckwatch submit <description> --repo URL [options]",
		Description: `Submits a task to the orchestrator queue.

If --mode is omitted the orchestrator infers it from the description.
Repository rules from the config file supply defaults for matching repos.

A full JSON request body can be piped in or passed with -f instead of flags.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "repo",
				Usage:       "repository URL (GitHub or Bitbucket HTTPS)",
				Destination: &cmd.repo,
			},
			&cli.StringFlag{
				Name:        "branch",
				Usage:       "base branch",
				Destination: &cmd.branch,
			},
			&cli.StringFlag{
				Name:        "target-branch",
				Usage:       "branch to review (peer_review mode)",
				Destination: &cmd.targetBranch,
			},
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "task mode (code, review, peer_review)",
				Destination: &cmd.mode,
			},
			&cli.StringFlag{
				Name:        "priority",
				Usage:       "queue priority (low, medium, high, critical)",
				Destination: &cmd.priority,
			},
			&cli.IntFlag{
				Name:        "max-iterations",
				Usage:       "iteration limit for the agent loop",
				Destination: &cmd.maxIterations,
			},
			&cli.IntFlag{
				Name:        "timeout",
				Usage:       "task timeout in seconds",
				Destination: &cmd.timeout,
			},
			&cli.BoolFlag{
				Name:        "follow",
				Aliases:     []string{"F"},
				Usage:       "follow task progress after submitting",
				Destination: &cmd.follow,
			},
			cmd.reader.Flag(),
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SubmitCmd) run(ctx context.Context, c *cli.Command) error {
	body, err := cmd.buildRequest(c)
	if err != nil {
		return err
	}

	created, err := cmd.flags.API.CreateTask(ctx, body)
	if err != nil {
		return fmt.Errorf("submit task: %w", err)
	}

	out := c.Root().Writer
	fmt.Fprintf(out, "Task submitted\n")
	fmt.Fprintf(out, "  ID:          %s\n", shortID(created.ID))
	fmt.Fprintf(out, "  Status:      %s\n", created.Status)
	fmt.Fprintf(out, "  Mode:        %s\n", created.Mode)
	fmt.Fprintf(out, "  Repo:        %s\n", created.RepoURL)
	fmt.Fprintf(out, "\n  Track progress: duckwatch show %s\n", shortID(created.ID))
	fmt.Fprintf(out, "  View log:       duckwatch log %s\n", shortID(created.ID))

	if cmd.follow {
		fmt.Fprintln(out)
		return followTask(ctx, cmd.flags.API, created.ID, out)
	}
	return nil
}

// buildRequest assembles the create body from JSON input or flags, then
// fills gaps from the first matching repository rule.
func (cmd *SubmitCmd) buildRequest(c *cli.Command) (api.TaskCreate, error) {
	var body api.TaskCreate

	if cmd.reader.HasInput() {
		var err error
		body, err = cmd.reader.Read()
		if err != nil {
			return body, fmt.Errorf("read task body: %w", err)
		}
	} else {
		if c.Args().Len() == 0 {
			return body, fmt.Errorf("description argument is required")
		}
		if cmd.repo == "" {
			return body, fmt.Errorf("--repo is required")
		}
		body = api.TaskCreate{
			Description:    c.Args().First(),
			RepoURL:        cmd.repo,
			Branch:         cmd.branch,
			TargetBranch:   cmd.targetBranch,
			Mode:           task.Mode(cmd.mode),
			Priority:       task.Priority(cmd.priority),
			MaxIterations:  cmd.maxIterations,
			TimeoutSeconds: cmd.timeout,
		}
	}
	body.Source = "cli"

	if rule, ok := cmd.flags.Config.RuleFor(body.RepoURL); ok {
		if body.Branch == "" {
			body.Branch = rule.Branch
		}
		if body.Mode == "" {
			body.Mode = task.Mode(rule.Mode)
		}
		if body.Priority == "" {
			body.Priority = task.Priority(rule.Priority)
		}
		if body.MaxIterations == 0 {
			body.MaxIterations = rule.MaxIterations
		}
	}

	return body, nil
}
