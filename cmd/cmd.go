// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

// rootCommand ranks liked artists when run without a subcommand.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "toplikes",
		Usage:     "Rank the artists behind your Spotify liked songs",
		Version:   version,
		ArgsUsage: "[client-id]",
		Before:    r.Before,
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "client-id",
				UsageText: "Spotify app client ID",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "client-id",
				Local:   true,
				Usage:   "Spotify app client ID",
				Sources: cli.EnvVars("SPOTIFY_CLIENT_ID"),
			},
			&cli.IntFlag{
				Name:    "top",
				Local:   true,
				Aliases: []string{"n"},
				Usage:   "Number of artists to show (0 shows all)",
				Value:   10,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Local: true,
				Usage: "How long to wait for the browser authorization",
				Value: 2 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Local: true,
				Usage: "Print the authorization URL instead of opening a browser",
			},
			&cli.BoolFlag{
				Name:  "json",
				Local: true,
				Usage: "Output the ranking as JSON",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Local: true,
				Usage: "Output the ranking as CSV",
			},
			&cli.BoolFlag{
				Name:  "save",
				Local: true,
				Usage: "Save the ranking to the history database",
			},
		},
		Action:   r.Top,
		Commands: r.register(),
	}
}

// historyCommand handles saved ranking snapshots.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List saved rankings",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Local: true,
				Usage: "Maximum number of snapshots to list (0 lists all)",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Local: true,
				Usage: "Output raw JSON",
			},
		},
		Action: r.HistoryList,
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show a saved ranking by ID, or the most recent one with 'latest'",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a saved ranking",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a configuration file with default values",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recently applied migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
