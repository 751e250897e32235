package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/barazo-forum/barazo-api/internal/adapters/mongo"
	"github.com/barazo-forum/barazo-api/internal/adapters/postgres"
	"github.com/barazo-forum/barazo-api/internal/domain"
	"github.com/barazo-forum/barazo-api/internal/heuristics"
	"github.com/barazo-forum/barazo-api/internal/platform/dbmongo"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
	"github.com/barazo-forum/barazo-api/internal/reputation"
	"github.com/barazo-forum/barazo-api/internal/sybil"
)

func newReputationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reputation",
		Short: "Run one-shot reputation/sybil/heuristics passes",
	}

	var scope string

	run := &cobra.Command{
		Use:   "run",
		Short: "Run an EigenTrust pass, sybil detection, and the behavioral heuristics once for a scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scope == "" {
				scope = domain.GlobalScope
			}

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

			repGraph := postgres.NewReputationGraph(pg)
			sybilGraph := postgres.NewSybilGraph(pg)
			clusters := postgres.NewSybilClusters(pg)

			engine := reputation.New(repGraph, repGraph, repGraph, logger)

			result, err := engine.Run(ctx, scope)
			if err != nil {
				return err
			}

			logger.Infof("reputation: scope=%s iterations=%d converged=%v scored=%d",
				scope, result.Iterations, result.Converged, len(result.Scores))

			detector := sybil.New(sybilGraph, sybilGraph, clusters, logger)

			summary, err := detector.Run(ctx, scope)
			if err != nil {
				return err
			}

			logger.Infof("sybil: scope=%s clusters=%d low_trust_ids=%d duration=%s",
				scope, summary.ClustersDetected, summary.TotalLowTrustIDs, summary.Duration)

			mongoConn := &dbmongo.Connection{DSN: cfg.MongoDSN, Database: cfg.MongoDB, Logger: logger}
			if err := mongoConn.Connect(ctx); err != nil {
				return err
			}

			flags := mongo.NewFlags(mongoConn)
			reactions := postgres.NewReactions(pg)
			content := postgres.NewContentWindow(pg)

			runner := heuristics.New(reactions, content, flags, logger)

			report := runner.RunAll(ctx)
			logger.Infof("heuristics: burst_voting=%d content_similarity=%d low_diversity=%d errors=%d",
				report.BurstVotingFlags, report.ContentSimilarityFlags, report.LowDiversityFlags, len(report.Errors))

			return nil
		},
	}

	run.Flags().StringVar(&scope, "scope", "", "community id to run against (defaults to the global scope)")
	cmd.AddCommand(run)

	return cmd
}
