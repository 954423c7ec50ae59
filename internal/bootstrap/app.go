package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"report-backend/internal/llm"
	openai "report-backend/internal/llm/openai"
	"report-backend/internal/queue"
	"report-backend/internal/reports"
	"report-backend/internal/reports/builder"
	"report-backend/internal/reports/variants"
	"report-backend/internal/services/health"
	"report-backend/internal/shared/config"
	"report-backend/internal/shared/server"
	"report-backend/internal/shared/storage/db"
	"report-backend/internal/shared/storage/object"
	localstore "report-backend/internal/shared/storage/object/local"
	s3store "report-backend/internal/shared/storage/object/s3"
	"report-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.ObjectStore
	Queue          queue.Client
	Catalog        variants.Catalog
	Narrator       llm.NarrativeGenerator
	ReportsRepo    reports.Repo
	ReportsService *reports.Service
	ReportHandler  *reports.Handler
	Processor      ReportProcessor
}

// ReportProcessor allows callers to override report processing for tests.
type ReportProcessor interface {
	ProcessReport(ctx context.Context, reportID string) error
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	telemetry.Configure(cfg.LogLevel)
	ctx := context.Background()

	catalog, err := variants.LoadFile(cfg.VariantsFile)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	narrator, err := buildNarrator(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Queue:    queueClient,
		Catalog:  catalog,
		Narrator: narrator,
	}
	buildServices(app)

	var pinger health.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		ReportHandler: app.ReportHandler,
		Health:        health.NewService(pinger),
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	profile := db.RuntimeProfile()
	opts := db.OptionsFromEnv(db.OptionsFor(profile))
	if profile == db.ProfileLambda {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.SQSQueueURL == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
}

func buildNarrator(cfg config.Config) (llm.NarrativeGenerator, error) {
	switch cfg.LLMProvider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.narrator_placeholder", map[string]any{"reason": "OPENAI_API_KEY empty"})
				return llm.PlaceholderClient{}, nil
			}
			return nil, fmt.Errorf("OPENAI_API_KEY is required for LLM_PROVIDER=openai")
		}
		client, err := openai.NewNarrativeClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		return reports.NewRetryingNarrator(client), nil
	case "", "none", "placeholder":
		return llm.PlaceholderClient{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func buildServices(app *App) {
	if app.DB != nil {
		app.ReportsRepo = &reports.PGRepo{DB: app.DB}
	} else {
		app.ReportsRepo = reports.NewMemoryRepo()
	}

	svc := &reports.Service{
		Repo:    app.ReportsRepo,
		Store:   app.Store,
		Catalog: app.Catalog,
		Queue:   app.Queue,
		Builder: &builder.Builder{
			Narrator:         app.Narrator,
			Catalog:          app.Catalog,
			NarrativeTimeout: app.Config.NarrativeTimeout,
		},
	}
	app.ReportsService = svc
	app.Processor = svc
	app.ReportHandler = reports.NewHandler(svc)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
