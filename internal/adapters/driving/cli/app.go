package cli

import (
	"context"
	"errors"
	"fmt"

	analyzeropenai "github.com/custodia-labs/driveindex/internal/adapters/driven/analyzer/openai"
	"github.com/custodia-labs/driveindex/internal/adapters/driven/blob/s3"
	"github.com/custodia-labs/driveindex/internal/adapters/driven/config/file"
	embeddingopenai "github.com/custodia-labs/driveindex/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/driveindex/internal/adapters/driven/extract"
	"github.com/custodia-labs/driveindex/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/driveindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/driveindex/internal/connectors/google"
	"github.com/custodia-labs/driveindex/internal/connectors/google/drive"
	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/core/ports/driving"
	"github.com/custodia-labs/driveindex/internal/core/services"
	"github.com/custodia-labs/driveindex/internal/logger"
	"github.com/custodia-labs/driveindex/internal/postprocessors/chunker"
)

// App holds the wired services for one command invocation.
type App struct {
	Config    *file.Config
	Pipeline  driving.Pipeline
	Reporter  driving.Reporter
	Schedules driven.SchedulerStore

	closers []func() error
}

// Close releases every opened store in reverse order.
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

// newApp wires the application from configuration. Replaced in tests.
var newApp = buildApp

func buildApp(ctx context.Context, cfg *file.Config) (_ *App, err error) {
	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	// Local state always lives in SQLite: scheduler history, and the
	// metadata and vectors when no postgres DSN is configured.
	local, err := sqlite.NewStore(cfg.Metadata.DataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: open local store: %w", domain.ErrStartup, err)
	}
	app.closers = append(app.closers, local.Close)
	app.Schedules = local.SchedulerStore()
	logger.Debug("Local store at %s", local.Path())

	pg := map[string]*postgres.Store{}
	openPostgres := func(dsn string) (*postgres.Store, error) {
		if s, ok := pg[dsn]; ok {
			return s, nil
		}
		s, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: connect postgres: %w", domain.ErrStartup, err)
		}
		pg[dsn] = s
		app.closers = append(app.closers, s.Close)
		return s, nil
	}

	var metadata driven.MetadataStore
	switch cfg.Metadata.Driver {
	case file.DriverPostgres:
		s, err := openPostgres(cfg.Metadata.DSN)
		if err != nil {
			return nil, err
		}
		metadata = s.MetadataStore()
	default:
		metadata = local.MetadataStore()
	}

	var index driven.VectorIndex
	switch cfg.Vector.Driver {
	case file.DriverPostgres:
		s, err := openPostgres(cfg.Vector.DSN)
		if err != nil {
			return nil, err
		}
		index, err = s.VectorIndex(ctx, cfg.Vector.Collection)
		if err != nil {
			return nil, fmt.Errorf("%w: open collection %q: %w", domain.ErrStartup, cfg.Vector.Collection, err)
		}
	default:
		index = local.VectorIndex(cfg.Vector.Collection)
	}

	blobs, err := s3.New(ctx, s3.Config{
		Bucket:        cfg.Blob.Bucket,
		Region:        cfg.Blob.Region,
		Endpoint:      cfg.Blob.Endpoint,
		PublicBaseURL: cfg.Blob.PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStartup, err)
	}

	extractor := extract.New()
	if err := extract.CheckAvailable(); err != nil {
		logger.Warn("PDF processing unavailable: %v\n%s", err, extract.InstallInstructions())
	}

	analyzer, err := analyzeropenai.New(analyzeropenai.Config{
		APIKey:  cfg.Analyzer.APIKey,
		BaseURL: cfg.Analyzer.BaseURL,
		Model:   cfg.Analyzer.Model,
	}, extractor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStartup, err)
	}
	prompts, err := file.NewPromptStore(cfg.Analyzer.PromptDir, map[string]string{
		driven.PromptDocumentAnalysis: analyzeropenai.DefaultInstructions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: prompt store: %w", domain.ErrStartup, err)
	}
	analyzer.SetPromptStore(prompts)

	// The interface stays nil without a key so the writer skips embedding.
	var embedder driven.EmbeddingService
	if cfg.Embedding.APIKey != "" {
		svc, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			APIKey:    cfg.Embedding.APIKey,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			BatchSize: cfg.Embedding.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStartup, err)
		}
		embedder = svc
		app.closers = append(app.closers, svc.Close)
	} else {
		logger.Warn("No embedding API key configured, records are written without vectors")
	}

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.Pipeline.ChunkSize),
		chunker.WithOverlap(cfg.Pipeline.ChunkOverlap),
	)

	source, err := newSource(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}

	app.Pipeline = services.NewOrchestrator(
		cfg.Pipeline, source, metadata, index, blobs, extractor, analyzer, splitter, embedder,
	)
	app.Reporter = services.NewReporter(cfg.Pipeline, source, metadata)
	return app, nil
}

func newSource(ctx context.Context, cfg file.SourceConfig) (*drive.Source, error) {
	ts, err := google.NewTokenSource(ctx, cfg.CredentialsFile, cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: google credentials: %w", domain.ErrStartup, err)
	}
	svc, err := google.NewDriveService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("%w: drive service: %w", domain.ErrStartup, err)
	}
	limiter := google.NewRateLimiter(google.RateLimitConfig{RequestsPerSecond: cfg.RequestsPerSecond})
	return drive.NewSource(svc, limiter), nil
}
