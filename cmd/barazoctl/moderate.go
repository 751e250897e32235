package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/barazo-forum/barazo-api/internal/adapters/mongo"
	"github.com/barazo-forum/barazo-api/internal/adapters/postgres"
	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/modaction"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
	"github.com/barazo-forum/barazo-api/internal/platform/dbmongo"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
	"github.com/barazo-forum/barazo-api/internal/platform/dbrabbitmq"
)

func newModerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Record a moderator ban/unban and propagate cross-community filters",
	}

	var community, actor string

	ban := &cobra.Command{
		Use:   "ban <repo-id>",
		Short: "Ban a repo within a community",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModerate(domain.ModActionBan, args[0], community, actor)
		},
	}

	unban := &cobra.Command{
		Use:   "unban <repo-id>",
		Short: "Unban a repo within a community",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModerate(domain.ModActionUnban, args[0], community, actor)
		},
	}

	for _, sub := range []*cobra.Command{ban, unban} {
		sub.Flags().StringVar(&community, "community", "", "community id the action applies to (required)")
		sub.Flags().StringVar(&actor, "actor", "", "repo id of the acting moderator (required)")
		_ = sub.MarkFlagRequired("community")
		_ = sub.MarkFlagRequired("actor")
		cmd.AddCommand(sub)
	}

	return cmd
}

func runModerate(kind domain.ModActionKind, targetRepoID, community, actor string) error {
	cfg := loadConfigOrExit()
	logger := newLoggerOrExit(cfg)
	defer logger.Sync()

	ctx := context.Background()

	pg := &dbpg.Connection{
		DSN:            cfg.PostgresDSN,
		DatabaseName:   cfg.PostgresDBName,
		MigrationsPath: cfg.PostgresMigrations,
		Logger:         logger,
	}
	if err := pg.Connect(ctx); err != nil {
		return err
	}

	mongoConn := &dbmongo.Connection{DSN: cfg.MongoDSN, Database: cfg.MongoDB, Logger: logger}
	if err := mongoConn.Connect(ctx); err != nil {
		return err
	}

	rabbit := &dbrabbitmq.Connection{DSN: cfg.RabbitMQDSN, Logger: logger}
	if err := rabbit.Connect(ctx); err != nil {
		return err
	}
	defer rabbit.Close()

	propagator := modaction.New(postgres.NewModActions(pg), rabbit, mongo.NewAuditLog(mongoConn), logger)

	action := domain.ModAction{
		TargetRepoID: targetRepoID,
		CommunityID:  community,
		Kind:         kind,
		ActorRepoID:  actor,
		CreatedAt:    time.Now(),
	}

	if err := propagator.Apply(ctx, action); err != nil {
		return err
	}

	logAction(logger, kind, targetRepoID, community)

	return nil
}

func logAction(logger ctxlog.Logger, kind domain.ModActionKind, targetRepoID, community string) {
	logger.Infof("moderate: %s target=%s community=%s recorded", kind, targetRepoID, community)
}
