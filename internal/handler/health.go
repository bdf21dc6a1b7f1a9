package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"github.com/bertybuttface/sponsorblock-mirror/internal/model"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db  Pinger
	rdb *redis.Client
}

// NewHealthHandler creates the health handler. rdb may be nil when the
// origin cache is disabled.
func NewHealthHandler(db Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Check handles GET /health. Only the database decides the overall status;
// the cache is reported for information.
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	resp := model.HealthResponse{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks: model.HealthChecks{
			Database: checkDB(ctx, h.db),
			Cache:    checkRedis(ctx, h.rdb),
		},
	}

	status := fiber.StatusOK
	if resp.Checks.Database.Status != statusHealthy {
		resp.Status = statusUnhealthy
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}

func checkDB(ctx context.Context, db Pinger) model.HealthCheck {
	start := time.Now()
	err := db.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		msg := "connection failed: " + err.Error()
		return model.HealthCheck{Status: statusUnhealthy, Message: &msg, ResponseTimeMs: &latency}
	}
	return model.HealthCheck{Status: statusHealthy, ResponseTimeMs: &latency}
}

func checkRedis(ctx context.Context, rdb *redis.Client) *model.HealthCheck {
	if rdb == nil {
		return &model.HealthCheck{Status: statusDisabled}
	}

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		msg := "connection failed"
		return &model.HealthCheck{Status: statusUnhealthy, Message: &msg, ResponseTimeMs: &latency}
	}
	return &model.HealthCheck{Status: statusHealthy, ResponseTimeMs: &latency}
}
