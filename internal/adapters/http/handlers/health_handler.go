package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"transport-billing/internal/config"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db      *gorm.DB
	appMode string
}

func NewHealthHandler(db *gorm.DB, appMode string) *HealthHandler {
	return &HealthHandler{db: db, appMode: appMode}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "transport-billing",
		"mode":    h.appMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck pings the database
// @Summary Health check
// @Description 503 when the database does not answer within two seconds
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	start := time.Now()
	err := config.HealthCheck(ctx, h.db)
	db := fiber.Map{
		"status":     "up",
		"latency_ms": time.Since(start).Milliseconds(),
	}

	if err != nil {
		db["status"] = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"database": db,
		})
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"database": db,
	})
}

// APIInfo handles API v1 info
// @Summary API v1 info
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":    "Transport Billing API",
		"version": "1.0.0",
	})
}
