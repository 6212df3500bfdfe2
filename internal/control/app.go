// Package control wires the engine's components together and manages their
// lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/genflow/internal/core/config"
	"github.com/vietddude/genflow/internal/generate"
	"github.com/vietddude/genflow/internal/health"
	"github.com/vietddude/genflow/internal/infra/model"
	redisclient "github.com/vietddude/genflow/internal/infra/redis"
	"github.com/vietddude/genflow/internal/infra/storage"
	"github.com/vietddude/genflow/internal/infra/storage/memory"
	"github.com/vietddude/genflow/internal/infra/storage/postgres"
	"github.com/vietddude/genflow/internal/media"
)

// App is the top-level application that manages component lifecycle.
type App struct {
	cfg           *config.AppConfig
	generator     *generate.Generator
	mediaPipe     *media.Pipeline
	healthMon     *health.Monitor
	healthServer  *health.Server
	db            *postgres.DB
	redisClient   *redisclient.Client
	grpcProviders []*model.GRPCProvider
	log           *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(cfg *config.AppConfig) (*App, error) {
	// 1. Storage
	var journal storage.AttemptJournal
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations (goose needs the raw *sql.DB that sqlx wraps)
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		journal = postgres.NewAttemptRepo(db)
		slog.Info("Using PostgreSQL attempt journal")
	} else {
		journal = memory.NewAttemptJournal()
		slog.Info("Using in-memory attempt journal")
	}

	// 2. Failed-generation journal
	var failedRepo storage.FailedGenerationRepository
	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, using in-memory failure journal", "error", err)
			failedRepo = memory.NewFailedGenerationRepo()
		} else {
			failedRepo = redisclient.NewFailedGenerationRepo(redisClient, "default")
			slog.Info("Using Redis failure journal")
		}
	} else {
		failedRepo = memory.NewFailedGenerationRepo()
		slog.Info("Using in-memory failure journal")
	}

	// 3. Model providers
	var httpProviders []model.Provider
	var grpcProviders []*model.GRPCProvider
	for _, p := range cfg.Providers {
		switch p.Kind {
		case "grpc":
			gp, err := model.NewGRPCProvider(context.Background(), p.Name, p.URL)
			if err != nil {
				return nil, fmt.Errorf("failed to create grpc provider %s: %w", p.Name, err)
			}
			grpcProviders = append(grpcProviders, gp)
		default:
			httpProviders = append(httpProviders, model.NewHTTPProvider(p.Name, p.URL, p.APIKey, p.Timeout.Std()))
		}
	}
	if len(httpProviders) == 0 {
		return nil, fmt.Errorf("at least one http provider is required")
	}
	chain, err := model.NewFailoverProvider(httpProviders...)
	if err != nil {
		return nil, err
	}

	// 4. Media pipeline
	var mediaPipe *media.Pipeline
	if cfg.Media.ImageEndpoint != "" || cfg.Media.AudioEndpoint != "" {
		client := model.NewMediaClient(
			cfg.Media.ImageEndpoint,
			cfg.Media.AudioEndpoint,
			cfg.Media.APIKey,
			cfg.Media.Timeout.Std(),
		)
		mediaPipe = media.NewPipeline(client).WithMaxConcurrent(cfg.Media.MaxConcurrent)
	}

	// 5. Generator
	genCfg := generate.DefaultConfig()
	genCfg.Retry = cfg.Retry.Options("generate")
	generator := generate.NewGenerator(chain, genCfg).
		WithJournal(journal).
		WithFailedRepo(failedRepo)
	if mediaPipe != nil {
		generator = generator.WithMedia(mediaPipe)
	}

	// 6. Health monitoring
	healthMon := health.NewMonitor(failedRepo)
	if db != nil {
		healthMon.Register("database", true, db.Health)
	}
	if redisClient != nil {
		healthMon.Register("redis", false, redisClient.Health)
	}
	for _, gp := range grpcProviders {
		healthMon.Register("provider:"+gp.Name(), false, gp.Health)
	}
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &App{
		cfg:           cfg,
		generator:     generator,
		mediaPipe:     mediaPipe,
		healthMon:     healthMon,
		healthServer:  healthServer,
		db:            db,
		redisClient:   redisClient,
		grpcProviders: grpcProviders,
		log:           slog.Default(),
	}, nil
}

// Generator exposes the wired generation engine.
func (a *App) Generator() *generate.Generator {
	return a.generator
}

// Media exposes the wired description pipeline, or nil when unconfigured.
func (a *App) Media() *media.Pipeline {
	return a.mediaPipe
}

// Start starts background components.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	go a.healthMon.Start(ctx)

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	a.log.Info("Engine started", "port", a.cfg.Server.Port, "providers", len(a.cfg.Providers))
	return nil
}

// Stop shuts down all components.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping engine...")

	for _, gp := range a.grpcProviders {
		if err := gp.Close(); err != nil {
			a.log.Warn("Failed to close grpc provider", "provider", gp.Name(), "error", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}
