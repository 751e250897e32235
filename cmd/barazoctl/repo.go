package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barazo-forum/barazo-api/internal/adapters/firehose"
	"github.com/barazo-forum/barazo-api/internal/adapters/postgres"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
	"github.com/barazo-forum/barazo-api/internal/repotracker"
)

func newRepoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Administer the tracked-repo set",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "track <repo-id>",
		Short: "Start tracking a repo and subscribe it on the upstream firehose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, logger, closeFn, err := buildTracker()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := tracker.Track(context.Background(), args[0]); err != nil {
				return err
			}

			logger.Infof("repo %s is now tracked", args[0])

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "untrack <repo-id>",
		Short: "Stop tracking a repo and unsubscribe it on the upstream firehose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, logger, closeFn, err := buildTracker()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := tracker.Untrack(context.Background(), args[0]); err != nil {
				return err
			}

			logger.Infof("repo %s is no longer tracked", args[0])

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every tracked repo id",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, _, closeFn, err := buildTracker()
			if err != nil {
				return err
			}
			defer closeFn()

			ids, err := tracker.List(context.Background())
			if err != nil {
				return err
			}

			for _, id := range ids {
				fmt.Println(id)
			}

			return nil
		},
	})

	return cmd
}

// buildTracker wires a repotracker.Tracker against a live postgres
// connection and a firehose client that is never streamed (Subscribe/
// Unsubscribe only buffer a reconnect signal and touch local state, so no
// live websocket is required for admin mutations of the tracked set).
func buildTracker() (*repotracker.Tracker, ctxlog.Logger, func(), error) {
	cfg := loadConfigOrExit()
	logger := newLoggerOrExit(cfg)

	conn := &dbpg.Connection{
		DSN:            cfg.PostgresDSN,
		DatabaseName:   cfg.PostgresDBName,
		MigrationsPath: cfg.PostgresMigrations,
		Logger:         logger,
	}

	if err := conn.Connect(context.Background()); err != nil {
		return nil, nil, nil, err
	}

	repo := postgres.NewRepoTracker(conn)
	client := firehose.New(cfg.UpstreamStreamURL, logger)
	tracker := repotracker.New(repo, client, logger)

	return tracker, logger, func() { _ = logger.Sync() }, nil
}
