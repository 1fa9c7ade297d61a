package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "darksky",
		Usage: "Dark-sky observing windows and target sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (optional)",
				Sources: cli.EnvVars("DARKSKY_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			warmCommand(),
			windowsCommand(),
			sessionsCommand(),
			nightsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("darksky failed", "error", err)
		os.Exit(1)
	}
}
