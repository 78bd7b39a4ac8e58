package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/auth"
	"github.com/lumara-health/labelling-engine/pkg/config"
	"github.com/lumara-health/labelling-engine/pkg/database"
	"github.com/lumara-health/labelling-engine/pkg/handlers"
	"github.com/lumara-health/labelling-engine/pkg/llm"
	"github.com/lumara-health/labelling-engine/pkg/repositories"
	"github.com/lumara-health/labelling-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Host),
		zap.Bool("llm_enabled", cfg.LLM.Enabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run over database/sql; the service itself uses pgxpool.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, "migrations", logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	caseRepo := repositories.NewCaseRepository(db)
	labelRepo := repositories.NewLabelRepository(db)
	taxonomyRepo := repositories.NewTaxonomyRepository(db)
	calibrationRepo := repositories.NewCalibrationRepository(db)
	modelRunRepo := repositories.NewModelRunRepository(db)

	taxonomyService := services.NewTaxonomyService(taxonomyRepo, logger)
	caseService := services.NewCaseService(caseRepo, labelRepo, calibrationRepo, logger)
	labelService := services.NewLabelService(labelRepo, caseRepo, taxonomyService, logger)
	calibrationService := services.NewCalibrationService(calibrationRepo, caseRepo, labelRepo, logger)
	exportService := services.NewExportService(caseRepo, labelRepo, calibrationRepo, taxonomyRepo, logger)
	modelRunService := services.NewModelRunService(modelRunRepo, logger)

	llmClient, err := llm.NewClient(cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	suggestionService := services.NewSuggestionService(llmClient, taxonomyService, caseService, logger)

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()
	authMiddleware := auth.NewMiddleware(jwksClient, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewCaseHandler(caseService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewLabelHandler(labelService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewTaxonomyHandler(taxonomyService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewCalibrationHandler(calibrationService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewExportHandler(exportService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewModelRunHandler(modelRunService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewSuggestionHandler(suggestionService, logger).RegisterRoutes(mux, authMiddleware)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting labelling-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
