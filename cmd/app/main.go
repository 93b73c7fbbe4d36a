package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/componentkit/internal"
	pkgconfig "github.com/starford/componentkit/pkg/config"
)

type runner func(ctx context.Context, opts ...internal.Option) error

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if dir := cmd.String("project"); dir != "" {
		cfg.Project.Directory = dir
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.App.HTTP.Port = int(port)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func action(run runner) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := run(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "componentkit",
		Usage:  "Package a component library into versioned archives with dependency-aware install scripts",
		Action: action(internal.Generate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project directory (overrides project.directory)",
				Sources: cli.EnvVars("APP_PROJECT_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Build the site and every component package",
				Action: action(internal.Generate),
			},
			{
				Name:   "serve",
				Usage:  "Generate, then serve the package catalog and rebuild on change",
				Action: action(internal.Serve),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "HTTP port (overrides app.http.port)",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the package catalog over MCP stdio",
				Action: action(internal.MCP),
			},
			{
				Name:   "check",
				Usage:  "Verify install scripts and checksums of a built downloads tree",
				Action: action(internal.Check),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
