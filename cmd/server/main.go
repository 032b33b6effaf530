package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"transport-billing/internal/adapters/http/middleware"
	"transport-billing/internal/adapters/http/routes"
	"transport-billing/internal/adapters/persistence/models"
	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/config"
	"transport-billing/internal/core/services"
	"transport-billing/internal/pkg/clock"
	"transport-billing/internal/pkg/logger"
	"transport-billing/internal/pkg/metrics"
	"transport-billing/internal/pkg/pdf"

	_ "transport-billing/docs" // Swagger docs
)

// @title Transport Billing API
// @version 1.0
// @description Bill issuing, numbering and export for a transport booking office

// @contact.name API Support

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if !cfg.EnvFileLoaded {
		zlog.Info("no .env file found, using environment variables")
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			zlog.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := models.AutoMigrate(db); err != nil {
		zlog.Fatal("failed to auto migrate", zap.Error(err))
	}
	zlog.Info("database migration completed")

	if err := config.NewSeeder(db, cfg.Seed, zlog).Run(); err != nil {
		zlog.Fatal("failed to seed database", zap.Error(err))
	}

	// Nightly refresh token cleanup
	cronService := services.NewCronService(repositories.NewRefreshTokenRepository(db), clock.Real{}, zlog)
	if err := cronService.Start(); err != nil {
		zlog.Fatal("failed to start cron service", zap.Error(err))
	}
	defer cronService.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "Transport Billing API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	middleware.Setup(app, cfg, zlog)

	routes.Setup(app, routes.Dependencies{
		DB:     db,
		Config: cfg,
		Logger: zlog,
		Clock:  clock.Real{},
		Renderer: pdf.NewInvoiceRenderer(pdf.Company{
			Name:      cfg.Company.Name,
			Address:   cfg.Company.Address,
			Phone:     cfg.Company.Phone,
			GSTNumber: cfg.Company.GSTNumber,
		}),
		Metrics:  metrics.New(prometheus.DefaultRegisterer),
		Gatherer: prometheus.DefaultGatherer,
	})

	go gracefulShutdown(app, zlog)

	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Error("server stopped", zap.Error(err))
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}
