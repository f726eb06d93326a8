package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "engine",
		Usage: "Compute inventory status, forecasts and reorder recommendations per tenant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (console or json)",
				EnvVars: []string{"LOG_FORMAT"},
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the replenishment engine for one or more tenants",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "source",
						Usage:   "Input source: db or dir",
						Value:   sourceDB,
						EnvVars: []string{"ENGINE_SOURCE"},
					},
					&cli.StringFlag{
						Name:    "feed-dir",
						Usage:   "Directory holding articles, inventory and sales feeds (dir source)",
						EnvVars: []string{"APP_FEED_DIR"},
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Usage:   "Directory the CSV and XLSX exports are written to",
						EnvVars: []string{"APP_OUTPUT_DIR"},
					},
					&cli.StringSliceFlag{
						Name:  "tenant",
						Usage: "Tenant to process, repeatable (default: every tenant in the source)",
					},
					&cli.StringFlag{
						Name:  "warehouse",
						Usage: "Restrict the run to one warehouse",
					},
					&cli.StringFlag{
						Name:  "as-of",
						Usage: "As-of day YYYY-MM-DD (default: today)",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "First day of the sales window YYYY-MM-DD (default: lookback from as-of)",
					},
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "Tenant partitions processed concurrently",
						EnvVars: []string{"ENGINE_WORKERS"},
					},
					&cli.BoolFlag{
						Name:    "publish-db",
						Usage:   "Publish outputs to the Postgres read model",
						Value:   true,
						EnvVars: []string{"ENGINE_PUBLISH_DB"},
					},
					&cli.BoolFlag{
						Name:    "export",
						Usage:   "Write CSV and XLSX exports to the output dir",
						Value:   true,
						EnvVars: []string{"ENGINE_EXPORT"},
					},
					&cli.BoolFlag{
						Name:    "upload",
						Usage:   "Mirror exports to the configured S3 bucket",
						EnvVars: []string{"ENGINE_UPLOAD"},
					},
				},
				Action: runEngine,
			},
			{
				Name:  "fetch",
				Usage: "Download feed files into the feed dir",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "Where to fetch from: drive or s3",
						Value: fetchDrive,
					},
					&cli.StringFlag{
						Name:    "feed-dir",
						Usage:   "Destination directory",
						EnvVars: []string{"APP_FEED_DIR"},
					},
					&cli.StringFlag{
						Name:    "folder-id",
						Usage:   "Google Drive folder id",
						EnvVars: []string{"DRIVE_FOLDER_ID"},
					},
					&cli.StringFlag{
						Name:  "folder-path",
						Usage: "Google Drive folder path, used when no folder id is set",
					},
					&cli.StringFlag{
						Name:    "credentials",
						Usage:   "Google service account credentials file",
						EnvVars: []string{"GOOGLE_CREDENTIALS_FILE"},
					},
					&cli.StringFlag{
						Name:    "prefix",
						Usage:   "Object key prefix of the feed files (s3)",
						EnvVars: []string{"S3_FEED_PREFIX"},
					},
				},
				Action: fetchFeeds,
			},
			{
				Name:  "tenants",
				Usage: "List the tenants known to the source",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "source",
						Usage:   "Input source: db or dir",
						Value:   sourceDB,
						EnvVars: []string{"ENGINE_SOURCE"},
					},
					&cli.StringFlag{
						Name:    "feed-dir",
						Usage:   "Feed directory (dir source)",
						EnvVars: []string{"APP_FEED_DIR"},
					},
				},
				Action: listTenants,
			},
			{
				Name:  "seed",
				Usage: "Load a feed directory into the Postgres input tables",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "feed-dir",
						Usage:   "Directory holding articles, inventory and sales feeds",
						EnvVars: []string{"APP_FEED_DIR"},
					},
					&cli.StringSliceFlag{
						Name:  "tenant",
						Usage: "Tenant to load, repeatable (default: every tenant in the feed dir)",
					},
					&cli.BoolFlag{
						Name:  "migrate",
						Usage: "Create missing tables first",
					},
				},
				Action: seedFeeds,
			},
			{
				Name:      "status",
				Usage:     "Show a tracked run and its failed partitions",
				ArgsUsage: "<run-id>",
				Action:    showRun,
			},
			{
				Name:   "migrate",
				Usage:  "Create the input, output and run tracking tables",
				Action: migrate,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		logger.Log.Error().Err(err).Msg("engine failed")
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	cfg := config.Load()
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	format := cfg.Log.Format
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	logger.Configure(level, format)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
