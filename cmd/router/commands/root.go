package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"claude-router/internal/app"
	"claude-router/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	cmd := &cli.Command{
		Name:    "claude-router",
		Usage:   "Anthropic Messages API gateway for OpenAI-style backends",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			startCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Starts the gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the router configuration file",
				Sources: cli.EnvVars("ROUTER_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: "text",
			},
		},
		Action: startAction,
	}
}

func startAction(ctx context.Context, cmd *cli.Command) error {
	application, err := app.New(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	// The config file sets the logging defaults; explicit flags win.
	logging := application.Config().Logging
	levelText := logging.Level
	if cmd.IsSet("log-level") {
		levelText = cmd.String("log-level")
	}
	format := logging.Format
	if cmd.IsSet("log-format") {
		format = cmd.String("log-format")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		return err
	}
	if err := observability.Instrument(level, format); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
