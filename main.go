package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/verdantiq/esg-engine/pkg/auth"
	"github.com/verdantiq/esg-engine/pkg/config"
	"github.com/verdantiq/esg-engine/pkg/database"
	"github.com/verdantiq/esg-engine/pkg/handlers"
	"github.com/verdantiq/esg-engine/pkg/llm"
	"github.com/verdantiq/esg-engine/pkg/middleware"
	"github.com/verdantiq/esg-engine/pkg/repositories"
	"github.com/verdantiq/esg-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("database", cfg.Database.Database))

	ctx := context.Background()

	// Migrations run over database/sql; the pool below uses pgx natively.
	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// LLM gateway; runs degraded when no credentials are configured.
	llmClient, err := llm.NewClientForProvider(cfg.LLM.Provider, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	gateway := llm.NewGateway(llmClient, &llm.GatewayConfig{
		Timeout:           time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Temperature:       cfg.LLM.Temperature,
	}, logger)

	// Repositories
	footprintRepo := repositories.NewFootprintRepository()
	sessionRepo := repositories.NewSessionRepository()
	seriesRepo := repositories.NewSeriesRepository()
	companyRepo := repositories.NewCompanyRepository()
	factorRepo := repositories.NewFactorRepository(db)
	benchmarkRepo := repositories.NewBenchmarkRepository(db)

	// Services
	referenceService := services.NewReferenceService(factorRepo, benchmarkRepo, cfg.Seeds, logger)
	defer referenceService.Close()
	if err := referenceService.SeedFromFiles(ctx); err != nil {
		logger.Fatal("Failed to seed reference data", zap.Error(err))
	}

	extractionService := services.NewExtractionService(sessionRepo, footprintRepo, companyRepo, referenceService, gateway, logger)
	updateService := services.NewUpdateService(footprintRepo, sessionRepo, seriesRepo, logger)
	predictionService := services.NewPredictionService(seriesRepo, logger)
	completenessService := services.NewCompletenessService(footprintRepo, seriesRepo, logger)
	guidanceService := services.NewGuidanceService(companyRepo, seriesRepo, completenessService, logger)
	benchmarkService := services.NewBenchmarkService(companyRepo, footprintRepo, benchmarkRepo, redisClient, logger)
	sessionService := services.NewSessionService(sessionRepo, logger)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg.Auth.SigningKey, cfg.Auth.EnableVerification, logger)
	companyMiddleware := handlers.NewCompanyMiddleware(database.NewCompanyScopeProvider(db), logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(db, cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewSmartEntryHandler(extractionService, updateService, logger).RegisterRoutes(mux, authMiddleware, companyMiddleware)
	handlers.NewAnalyticsHandler(predictionService, logger).RegisterRoutes(mux, authMiddleware, companyMiddleware)
	handlers.NewGuidanceHandler(completenessService, guidanceService, logger).RegisterRoutes(mux, authMiddleware, companyMiddleware)
	handlers.NewBenchmarkHandler(benchmarkService, logger).RegisterRoutes(mux, authMiddleware, companyMiddleware)
	handlers.NewSessionHandler(sessionService, logger).RegisterRoutes(mux, authMiddleware, companyMiddleware)
	handlers.NewAdminHandler(referenceService, logger).RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting esg-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
