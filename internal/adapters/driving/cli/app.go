package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/ai"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/auth"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/corpus"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/maintenance-agent/internal/adapters/driven/redis"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/storage/snapshot"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/maintenance-agent/internal/config"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driving"
	"github.com/custodia-labs/maintenance-agent/internal/core/services"
	"github.com/custodia-labs/maintenance-agent/internal/postprocessors"
)

// Index is the manual index as the commands use it
type Index interface {
	driving.IndexService
	LoadOrBuild(ctx context.Context) error
}

// App holds the wired services for one process
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Index    Index
	Analysis driving.AnalysisService
	Logs     driving.LogService
	Auth     driving.AuthService
	Tokens   driven.AuthAdapter

	// Health checks; Lock is nil when no distributed lock is configured
	LogStore Pinger
	Lock     Pinger

	// Watched by the index watcher
	ManualDir  string
	Extensions []string

	closers []func() error
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Close releases connections in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// NewApp opens the stores named by cfg and wires the services.
// The index is created empty; callers decide whether to load or build it.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger, ManualDir: cfg.Index.ManualDir}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	// ===== Log store =====
	var logStore driven.LogStore
	var pgDB *postgres.DB
	switch cfg.LogStore.Driver {
	case config.DriverPostgres:
		dbCfg := postgres.DefaultConfig(cfg.LogStore.DSN)
		dbCfg.Logger = logger
		pgDB, err = postgres.Connect(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err = pgDB.Migrate(ctx); err != nil {
			pgDB.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logStore = postgres.NewLogStore(pgDB)
		logger.Info("using postgres log store")
	default:
		var store *sqlite.LogStore
		store, err = sqlite.Open(ctx, cfg.LogStore.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite log store: %w", err)
		}
		logStore = store
		logger.Info("using sqlite log store", "path", cfg.LogStore.Path)
	}
	app.onClose(logStore.Close)
	app.LogStore = logStore

	images, err := files.NewImageStore(cfg.LogStore.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("open image store: %w", err)
	}

	// ===== Rebuild lock (Redis if available, otherwise PostgreSQL advisory locks) =====
	var lock driven.DistributedLock
	switch {
	case cfg.Redis.URL != "":
		client, cerr := redisadapter.Connect(ctx, cfg.Redis.URL)
		if cerr != nil {
			return nil, fmt.Errorf("connect to redis: %w", cerr)
		}
		app.onClose(client.Close)
		lock = redisadapter.NewLock(client, cfg.Redis.LockPrefix)
		logger.Info("using redis rebuild lock")
	case pgDB != nil:
		lock = postgres.NewAdvisoryLock(pgDB)
		logger.Info("using postgres advisory rebuild lock")
	}
	if lock != nil {
		app.Lock = lock
	}

	// ===== AI services =====
	factory := ai.NewFactory()
	embedder, err := factory.CreateEmbeddingService(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding service: %w", err)
	}
	app.onClose(embedder.Close)

	classifier, err := factory.CreateClassifier(cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	// ===== Manual index =====
	pdf := corpus.NewPDFExtractor(corpus.ExecRunner{})
	if !pdf.Available() {
		logger.Warn("pdftotext not found, PDF manuals will be skipped")
	}
	source := corpus.NewDirectorySource(corpus.DirectoryConfig{
		Root:       cfg.Index.ManualDir,
		Extractors: []driven.TextExtractor{corpus.PlainTextExtractor{}, pdf},
		Logger:     logger,
	})
	app.Extensions = source.SupportedExtensions()

	pipeline, err := postprocessors.DefaultPipeline(postprocessors.ChunkConfig{
		Size:    cfg.Index.ChunkSize,
		Overlap: cfg.Index.Overlap,
	})
	if err != nil {
		return nil, err
	}

	index, err := services.NewManualIndex(services.ManualIndexConfig{
		Embedder:       embedder,
		Corpus:         source,
		Snapshots:      snapshot.NewFileStore(cfg.Index.SnapshotPath),
		Pipeline:       pipeline,
		Lock:           lock,
		Logger:         logger,
		BatchSize:      cfg.Embedding.BatchSize,
		ScoreThreshold: cfg.Index.ScoreThreshold,
		LockTTL:        cfg.Index.LockTTL,
	})
	if err != nil {
		return nil, err
	}
	app.Index = index

	// ===== Services =====
	app.Logs, err = services.NewLogService(services.LogServiceConfig{
		Store:  logStore,
		Images: images,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	app.Analysis, err = services.NewAnalysisService(services.AnalysisConfig{
		Classifier:     classifier,
		Index:          index,
		Logs:           app.Logs,
		TopK:           cfg.Index.TopK,
		MaxImagePixels: cfg.Server.MaxImagePixels,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	operators, err := auth.NewStaticOperatorStore(cfg.Auth.Operators)
	if err != nil {
		return nil, fmt.Errorf("load operators: %w", err)
	}
	app.Tokens = auth.NewAdapter(cfg.Auth.JWTSecret)
	app.Auth = services.NewAuthService(operators, app.Tokens, cfg.Auth.TokenTTL)

	if cfg.UsesDevelopmentSecret() {
		logger.Warn("JWT_SECRET is not set, tokens are signed with the development secret")
	}
	if len(cfg.Auth.Operators) == 0 {
		logger.Info("no operators configured, dashboard endpoints will reject every login")
	}

	return app, nil
}
