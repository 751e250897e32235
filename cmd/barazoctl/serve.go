package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/barazo-forum/barazo-api/internal/accountage"
	"github.com/barazo-forum/barazo-api/internal/adapters/firehose"
	"github.com/barazo-forum/barazo-api/internal/adapters/mongo"
	"github.com/barazo-forum/barazo-api/internal/adapters/postgres"
	redisadapter "github.com/barazo-forum/barazo-api/internal/adapters/redis"
	"github.com/barazo-forum/barazo-api/internal/collection"
	"github.com/barazo-forum/barazo-api/internal/config"
	"github.com/barazo-forum/barazo-api/internal/cursor"
	"github.com/barazo-forum/barazo-api/internal/dispatch"
	"github.com/barazo-forum/barazo-api/internal/heuristics"
	"github.com/barazo-forum/barazo-api/internal/httpapi"
	"github.com/barazo-forum/barazo-api/internal/identity"
	"github.com/barazo-forum/barazo-api/internal/indexer"
	"github.com/barazo-forum/barazo-api/internal/ingestion"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
	"github.com/barazo-forum/barazo-api/internal/platform/dbmongo"
	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
	"github.com/barazo-forum/barazo-api/internal/platform/dbrabbitmq"
	"github.com/barazo-forum/barazo-api/internal/platform/dbredis"
	"github.com/barazo-forum/barazo-api/internal/platform/otelsetup"
	"github.com/barazo-forum/barazo-api/internal/repotracker"
	"github.com/barazo-forum/barazo-api/internal/reputation"
	"github.com/barazo-forum/barazo-api/internal/session"
	"github.com/barazo-forum/barazo-api/internal/sybil"
)

// reputationScheduleInterval is the cadence of the periodic reputation/
// sybil/heuristics sweep; no period is mandated, so a conservative default
// is used here.
const reputationScheduleInterval = time.Hour

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion pipeline, reputation scheduler, and session HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfigOrExit()
	logger := newLoggerOrExit(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTelCollectorEndpoint != "" {
		provider, err := otelsetup.Setup(ctx, otelsetup.Config{
			ServiceName:       "barazo-api",
			ServiceVersion:    "dev",
			DeploymentEnv:     cfg.EnvName,
			CollectorEndpoint: cfg.OTelCollectorEndpoint,
			Insecure:          cfg.EnvName != "production",
		})
		if err != nil {
			return err
		}
		defer provider.Shutdown(context.Background())
	}

	pg := &dbpg.Connection{DSN: cfg.PostgresDSN, DatabaseName: cfg.PostgresDBName, MigrationsPath: cfg.PostgresMigrations, Logger: logger}
	if err := pg.Connect(ctx); err != nil {
		return err
	}

	redisConn := &dbredis.Connection{DSN: cfg.RedisDSN, Logger: logger}
	if err := redisConn.Connect(ctx); err != nil {
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

	users := postgres.NewUsers(pg)
	topicStore := postgres.NewTopics(pg)
	replyStore := postgres.NewReplies(pg)
	reactionStore := postgres.NewReactions(pg)
	cursorRepo := postgres.NewCursor(pg)
	repoTrackerRepo := postgres.NewRepoTracker(pg)
	repGraph := postgres.NewReputationGraph(pg)
	sybilGraph := postgres.NewSybilGraph(pg)
	clusters := postgres.NewSybilClusters(pg)
	contentWindow := postgres.NewContentWindow(pg)

	flags := mongo.NewFlags(mongoConn)

	accountFilterCache := redisadapter.NewAccountFilterCache(redisConn, 5*time.Minute)
	stateKV := redisadapter.NewKV(redisConn, "oauth-state:")
	sessionKV := redisadapter.NewKV(redisConn, "session:")
	tokenKV := redisadapter.NewKV(redisConn, "token:")

	firehoseClient := firehose.New(cfg.UpstreamStreamURL, logger)

	topicIndexer := indexer.NewTopicIndexer(topicStore, logger)
	replyIndexer := indexer.NewReplyIndexer(replyStore, logger)
	reactionIndexer := indexer.NewReactionIndexer(reactionStore, logger)

	oracle := &accountage.Oracle{
		DirectoryRoot: cfg.DirectoryURL,
		Timeout:       cfg.DirectoryTimeout,
		HTTPClient:    &http.Client{Timeout: cfg.DirectoryTimeout},
		Logger:        logger,
	}

	dispatcher := dispatch.New(users, oracle, topicIndexer, replyIndexer, reactionIndexer, repGraph, cfg.ModerationHoldLabels, logger)
	identityHandler := identity.New(users, logger)
	cursorStore := cursor.NewStore(cursorRepo, cfg.CursorDebounceInterval, logger)
	tracker := repotracker.New(repoTrackerRepo, firehoseClient, logger)

	identityApply := func(ctx context.Context, evt collection.IdentityEvent) error {
		return identityHandler.Handle(ctx, evt.Status, evt.DID, evt.Handle)
	}

	ingestionSvc := ingestion.New(tracker, firehoseClient, dispatcher, identityApply, cursorStore, logger)
	if err := ingestionSvc.Start(ctx); err != nil {
		return err
	}
	defer ingestionSvc.Stop(context.Background())

	identityProvider := session.NewCasdoorProvider(session.CasdoorConfig{
		Endpoint:         cfg.CasdoorEndpoint,
		ClientID:         cfg.CasdoorClientID,
		ClientSecret:     cfg.CasdoorClientSecret,
		OrganizationName: cfg.CasdoorOrg,
		ApplicationName:  cfg.CasdoorApp,
		RedirectURI:      cfg.CasdoorRedirectURL,
	}, logger)

	authority := session.New(stateKV, sessionKV, tokenKV, session.Config{
		StateTTL:       cfg.OAuthStateTTL,
		SessionTTL:     cfg.OAuthSessionTTL,
		AccessTokenTTL: cfg.OAuthAccessTokenTTL,
	}, logger)
	flow := session.NewFlow(authority, identityProvider)

	heuristicsRunner := heuristics.New(reactionStore, contentWindow, flags, logger)

	go runCacheInvalidationConsumer(ctx, rabbit, accountFilterCache, logger)
	go runReputationScheduler(ctx, repGraph, sybilGraph, clusters, heuristicsRunner, logger)

	app := httpapi.New(httpapi.Dependencies{
		Authority:  authority,
		Flow:       flow,
		Roles:      users,
		IsOperator: cfg.IsOperator,
		GlobalMode: cfg.CommunityMode == config.ModeGlobal,
		Version:    "dev",
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(cfg.HTTPAddr) }()

	select {
	case <-ctx.Done():
		_ = app.ShutdownWithTimeout(10 * time.Second)
		return nil
	case err := <-errCh:
		return err
	}
}

func runCacheInvalidationConsumer(ctx context.Context, rabbit *dbrabbitmq.Connection, cache *redisadapter.AccountFilterCache, logger ctxlog.Logger) {
	keys, err := rabbit.SubscribeInvalidations(ctx)
	if err != nil {
		logger.Errorf("serve: subscribe invalidations: %v", err)
		return
	}

	for key := range keys {
		repoID := accountFilterRepoID(key)
		if repoID == "" {
			continue
		}

		if err := cache.Invalidate(ctx, repoID); err != nil {
			logger.Warnf("serve: invalidate account-filter cache for %s: %v", repoID, err)
		}
	}
}

func accountFilterRepoID(cacheKey string) string {
	const prefix = "account-filter:"
	if len(cacheKey) <= len(prefix) || cacheKey[:len(prefix)] != prefix {
		return ""
	}

	return cacheKey[len(prefix):]
}

func runReputationScheduler(ctx context.Context, edges *postgres.ReputationGraph, sybilGraph *postgres.SybilGraph, clusters *postgres.SybilClusters, heuristicsRunner *heuristics.Runner, logger ctxlog.Logger) {
	engine := reputation.New(edges, edges, edges, logger)
	detector := sybil.New(sybilGraph, sybilGraph, clusters, logger)
	jobs := reputation.NewJobStatus()

	ticker := time.NewTicker(reputationScheduleInterval)
	defer ticker.Stop()

	runOnce := func() {
		scope := "" // global scope; per-community sweeps are triggered via the `reputation run --scope` CLI
		if _, err := jobs.RunScoped(ctx, scope, time.Now, engine.Run); err != nil {
			logger.Warnf("reputation scheduler: run failed: %v", err)
			return
		}

		if _, err := detector.Run(ctx, scope); err != nil {
			logger.Warnf("reputation scheduler: sybil detection failed: %v", err)
		}

		report := heuristicsRunner.RunAll(ctx)
		if len(report.Errors) > 0 {
			logger.Warnf("reputation scheduler: heuristics ran with %d errors", len(report.Errors))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
