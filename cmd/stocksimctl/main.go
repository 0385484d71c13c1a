package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/atharvakonge/stocksim/internal/app"
	"github.com/atharvakonge/stocksim/internal/config"
	"github.com/atharvakonge/stocksim/internal/db"
	"github.com/atharvakonge/stocksim/internal/lib/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	verbose    bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := &options{}
	root := &cobra.Command{
		Use:          "stocksimctl",
		Short:        "Operate a stocksim deployment",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log what the command is doing")

	root.AddCommand(
		newMigrateCmd(opts),
		newChallengesCmd(opts),
		newLeaderboardCmd(opts),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		danger.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (o *options) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if !o.verbose {
		return cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}
	return cfg, logger.New(cfg.Env, os.Stderr), nil
}

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	for _, dir := range []db.Direction{db.Up, db.Down} {
		cmd.AddCommand(&cobra.Command{
			Use:   string(dir),
			Short: fmt.Sprintf("Run every %s migration", dir),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := opts.load()
				if err != nil {
					return err
				}
				if cfg.Storage != config.StoragePostgres {
					return fmt.Errorf("migrations need storage %q, got %q", config.StoragePostgres, cfg.Storage)
				}

				conn, err := db.Open(cmd.Context(), cfg.Postgres)
				if err != nil {
					return err
				}
				defer conn.Close()

				if err := db.Migrate(cmd.Context(), conn, dir); err != nil {
					return err
				}
				success.Printf("migrations %s: done\n", dir)
				return nil
			},
		})
	}
	return cmd
}

func newChallengesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenges",
		Short: "Manage trading challenges",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "finalize",
		Short: "Freeze final values for challenges that have ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Challenges.Finalize(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				warn.Println("nothing to finalize")
				return nil
			}
			success.Printf("froze %d participant result(s)\n", n)
			return nil
		},
	})
	return cmd
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print traders ranked by net worth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			lb, err := a.Market.Leaderboard(cmd.Context(), 0)
			if err != nil {
				return err
			}
			printLeaderboard(cmd.OutOrStdout(), lb, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "rows to print, 0 for all")
	return cmd
}

func (o *options) app(ctx context.Context) (*app.App, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}
