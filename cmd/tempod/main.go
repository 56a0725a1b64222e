package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/sandeepkv93/tempod/internal/app"
	"github.com/sandeepkv93/tempod/internal/backup"
	"github.com/sandeepkv93/tempod/internal/config"
	"github.com/sandeepkv93/tempod/internal/storage"
)

func main() {
	if err := buildApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tempod failed: %v\n", err)
		os.Exit(1)
	}
}

func buildApp() *cli.App {
	return &cli.App{
		Name:  "tempod",
		Usage: "time tracking daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the YAML configuration",
				Value: "tempod.yaml",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "override the database path",
			},
		},
		Action: func(ctx *cli.Context) error {
			return runServe(ctx)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the daemon",
				Action: func(ctx *cli.Context) error {
					return runServe(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply pending migrations",
						Action: func(ctx *cli.Context) error {
							return withRepo(ctx, func(context.Context, config.Config, *storage.SQLiteRepository) error {
								return nil
							})
						},
					},
					{
						Name:  "down",
						Usage: "roll the schema back",
						Action: func(ctx *cli.Context) error {
							cfg, err := loadConfig(ctx)
							if err != nil {
								return err
							}
							repo, err := storage.OpenSQLite(cfg.DBPath)
							if err != nil {
								return err
							}
							defer repo.Close()
							return storage.MigrateDown(repo.DB())
						},
					},
				},
			},
			{
				Name:  "backup",
				Usage: "export and import state",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "write a full snapshot to a file",
						ArgsUsage: "<file>",
						Action: func(ctx *cli.Context) error {
							if ctx.NArg() != 1 {
								return fmt.Errorf("backup create expects one file argument")
							}
							return withRepo(ctx, func(c context.Context, _ config.Config, repo *storage.SQLiteRepository) error {
								raw, err := backup.Create(c, repo, 0, "")
								if err != nil {
									return err
								}
								return os.WriteFile(ctx.Args().First(), raw, 0o600)
							})
						},
					},
					{
						Name:      "restore",
						Usage:     "replace state from a snapshot file",
						ArgsUsage: "<file>",
						Action: func(ctx *cli.Context) error {
							if ctx.NArg() != 1 {
								return fmt.Errorf("backup restore expects one file argument")
							}
							raw, err := os.ReadFile(ctx.Args().First())
							if err != nil {
								return err
							}
							return withRepo(ctx, func(c context.Context, _ config.Config, repo *storage.SQLiteRepository) error {
								return backup.Restore(c, repo, raw)
							})
						},
					},
				},
			},
		},
	}
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if db := ctx.String("db"); db != "" {
		cfg.DBPath = db
	}
	return cfg, nil
}

// withRepo opens the database, migrates it and hands it to fn.
func withRepo(ctx *cli.Context, fn func(context.Context, config.Config, *storage.SQLiteRepository) error) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := storage.MigrateUp(repo.DB()); err != nil {
		return err
	}
	return fn(ctx.Context, cfg, repo)
}

func runServe(ctx *cli.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	return withRepo(ctx, func(c context.Context, cfg config.Config, repo *storage.SQLiteRepository) error {
		if err := app.Seed(c, repo, cfg.OtherActivityID); err != nil {
			return err
		}
		daemon, err := app.New(cfg, repo, logger)
		if err != nil {
			return err
		}

		runCtx, stop := signal.NotifyContext(c, os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger.Info("tempod started", slog.String("db", cfg.DBPath))
		return daemon.Run(runCtx)
	})
}
