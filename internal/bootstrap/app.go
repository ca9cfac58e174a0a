package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/ai"
	"lexscan-backend/internal/ai/gemini"
	"lexscan-backend/internal/ai/openai"
	"lexscan-backend/internal/analysis"
	"lexscan-backend/internal/documents"
	"lexscan-backend/internal/notify"
	"lexscan-backend/internal/queue"
	"lexscan-backend/internal/quota"
	"lexscan-backend/internal/ratelimit"
	"lexscan-backend/internal/shared/config"
	"lexscan-backend/internal/shared/server"
	"lexscan-backend/internal/shared/storage/db"
	"lexscan-backend/internal/shared/storage/object"
	localstore "lexscan-backend/internal/shared/storage/object/local"
	s3store "lexscan-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API and worker processes.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	// MemoryQueue is set when no SQS queue is configured; dev mode consumes
	// it in-process so the async pipeline still runs end to end.
	MemoryQueue *queue.MemoryQueue

	Limiter *ratelimit.Limiter

	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	QuotaService     *quota.Service
	NotifyService    *notify.Service
	AnalysisService  *analysis.Service

	DocumentsHandler *documents.Handler
	NotifyHandler    *notify.Handler
	UsageHandler     *quota.Handler
	AnalysisHandler  *analysis.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildQueue(ctx, app); err != nil {
		return nil, err
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		Limiter:         app.Limiter,
		AnalysisHandler: app.AnalysisHandler,
		DocumentHandler: app.DocumentsHandler,
		NotifyHandler:   app.NotifyHandler,
		UsageHandler:    app.UsageHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
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

func buildQueue(ctx context.Context, app *App) error {
	if strings.TrimSpace(os.Getenv("LS_SQS_QUEUE_URL")) != "" {
		client, err := queue.NewSQSClient(ctx)
		if err != nil {
			return err
		}
		app.Queue = client
		return nil
	}
	if !isDevLike(app.Config.Env) {
		return fmt.Errorf("LS_SQS_QUEUE_URL is required")
	}
	mem := queue.NewMemoryQueue(app.Config.AnalysisTimeout * 2)
	app.Queue = mem
	app.MemoryQueue = mem
	return nil
}

func buildServices(app *App) error {
	cfg := app.Config

	if app.DB != nil {
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.QuotaService = quota.NewPostgresService(quota.NewPGStore(app.DB, cfg.FreeTierLimit))
		app.NotifyService = notify.NewService(&notify.PGRepo{DB: app.DB})
		app.Limiter = ratelimit.New(ratelimit.NewPGStore(app.DB), limiterRules(cfg), nil)
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.QuotaService = quota.NewService(cfg.FreeTierLimit)
		app.NotifyService = notify.NewService(notify.NewMemoryRepo())
		app.Limiter = ratelimit.New(ratelimit.NewMemoryStore(nil), limiterRules(cfg), nil)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	engine := &ai.Engine{
		Providers:  providers,
		CharBudget: cfg.PromptCharBudget,
		Timeout:    cfg.AnalysisTimeout,
	}

	app.DocumentsService = &documents.Service{Repo: app.DocumentsRepo}
	app.AnalysisService = analysis.NewService(
		app.DocumentsRepo,
		app.Store,
		engine,
		app.QuotaService,
		app.Queue,
		app.NotifyService,
		cfg.MaxUploadBytes,
		cfg.MaxAttempts,
	)

	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.NotifyHandler = notify.NewHandler(app.NotifyService)
	app.UsageHandler = quota.NewHandler(app.QuotaService, isDevLike(cfg.Env))
	app.AnalysisHandler = analysis.NewHandler(app.AnalysisService)
	return nil
}

// buildProviders parses AI_MODELS entries of the form "backend:model" into
// the ordered fallback chain. Entries whose backend has no API key configured
// are skipped so one missing key does not take the whole chain down.
func buildProviders(cfg config.Config) ([]ai.Provider, error) {
	var providers []ai.Provider
	for _, spec := range cfg.AIModels {
		backend, model, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid AI_MODELS entry %q, want backend:model", spec)
		}
		backend = strings.ToLower(strings.TrimSpace(backend))
		model = strings.TrimSpace(model)

		switch backend {
		case "gemini":
			if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
				log.Printf("bootstrap: skipping %s, GEMINI_API_KEY not set", spec)
				continue
			}
			client, err := gemini.NewClient(cfg.GeminiAPIKey, model)
			if err != nil {
				return nil, err
			}
			providers = append(providers, client)
		case "openai":
			if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
				log.Printf("bootstrap: skipping %s, OPENAI_API_KEY not set", spec)
				continue
			}
			client, err := openai.NewClient(cfg.OpenAIAPIKey, model)
			if err != nil {
				return nil, err
			}
			providers = append(providers, client)
		default:
			return nil, fmt.Errorf("unknown AI_MODELS backend %q", backend)
		}
	}
	if len(providers) == 0 && !isDevLike(cfg.Env) {
		return nil, fmt.Errorf("no analysis providers configured")
	}
	return providers, nil
}

func limiterRules(cfg config.Config) map[ratelimit.Class]ratelimit.Rule {
	return map[ratelimit.Class]ratelimit.Rule{
		ratelimit.ClassGlobal: {Max: cfg.RateGlobalMax, Window: cfg.RateGlobalWindow},
		ratelimit.ClassAuth:   {Max: cfg.RateAuthMax, Window: cfg.RateAuthWindow},
		ratelimit.ClassAI:     {Max: cfg.RateAIFreeMax, Window: cfg.RateAIWindow},
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
