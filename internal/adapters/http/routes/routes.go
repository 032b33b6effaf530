package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"transport-billing/internal/adapters/http/handlers"
	"transport-billing/internal/adapters/http/middleware"
	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/config"
	"transport-billing/internal/core/services"
	"transport-billing/internal/pkg/clock"
	"transport-billing/internal/pkg/metrics"
	"transport-billing/internal/pkg/validation"
)

// Dependencies are the shared collaborators the routes are built from
type Dependencies struct {
	DB       *gorm.DB
	Config   *config.Config
	Logger   *zap.Logger
	Clock    clock.Clock
	Renderer services.Renderer
	Metrics  *metrics.BillingMetrics
	// Gatherer backs /metrics; nil uses the default prometheus registry
	Gatherer prometheus.Gatherer
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	validator := validation.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(deps.DB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(deps.DB)
	billRepo := repositories.NewBillRepository(deps.DB)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, validator, cfg, deps.Clock, deps.Logger)
	userService := services.NewUserService(userRepo, validator, deps.Logger)
	billService := services.NewBillService(
		billRepo,
		services.NewNumberingService(cfg.Billing),
		services.NewExportService(deps.Renderer),
		validator,
		cfg.Billing,
		deps.Clock,
		deps.Metrics,
		deps.Logger,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.DB, cfg.AppMode)
	authHandler := handlers.NewAuthHandler(authService, cfg, deps.Logger)
	userHandler := handlers.NewUserHandler(userService, deps.Logger)
	billHandler := handlers.NewBillHandler(billService, deps.Logger)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(authService)

	setupAuthRoutes(apiV1.Group("/auth"), authHandler, auth)
	setupUserRoutes(apiV1.Group("/users", auth, middleware.AdminOnly()), userHandler)
	setupProfileRoutes(apiV1.Group("/profile", auth), userHandler)
	setupBillRoutes(apiV1.Group("/bills", auth, middleware.StaffOrAdmin(), middleware.NoCacheHeaders()), billHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, h *handlers.AuthHandler, auth fiber.Handler) {
	// Public routes with strict rate limiting
	router.Post("/login", middleware.AuthRateLimiter(), h.Login)
	router.Post("/refresh", h.RefreshToken)
	router.Post("/logout", h.Logout)

	// Operator accounts are created by an admin
	router.Post("/register", auth, middleware.AdminOnly(), h.Register)

	router.Post("/logout-all", auth, h.LogoutAll)
	router.Get("/me", auth, h.Me)
}

// setupUserRoutes configures user management routes (Admin only)
func setupUserRoutes(router fiber.Router, h *handlers.UserHandler) {
	router.Get("/", h.ListUsers)
	router.Get("/:id", h.GetUser)
	router.Put("/:id", h.UpdateUser)
	router.Delete("/:id", h.DeleteUser)
}

// setupProfileRoutes configures self-service profile routes
func setupProfileRoutes(router fiber.Router, h *handlers.UserHandler) {
	router.Get("/", h.GetProfile)
	router.Put("/", h.UpdateProfile)
	router.Put("/password", h.ChangePassword)
}

// setupBillRoutes configures bill routes. Ownership and the admin-only
// delete rule are enforced by the bill service.
func setupBillRoutes(router fiber.Router, h *handlers.BillHandler) {
	router.Post("/", h.CreateBill)
	router.Get("/", h.ListBills)

	// static paths before /:id
	router.Get("/summary", h.Summary)
	router.Get("/register.xlsx", h.Register)

	router.Get("/:id", h.GetBill)
	router.Put("/:id", h.UpdateBill)
	router.Patch("/:id", h.UpdateBill)
	router.Delete("/:id", h.DeleteBill)
	router.Get("/:id/download", h.DownloadBill)
	router.Get("/:id/history", h.History)
}
