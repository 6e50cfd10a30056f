package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/feedback-batch/internal/classifier"
	"github.com/kursadbilgin/feedback-batch/internal/observability"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// RegisterHealthRoutes mounts liveness, readiness and metrics. sqlDB and rdb
// are optional and only checked when set.
func RegisterHealthRoutes(app fiber.Router, checker classifier.HealthChecker, sqlDB *sql.DB, rdb *redis.Client, metrics *observability.Metrics) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(checker, sqlDB, rdb))
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(checker classifier.HealthChecker, sqlDB *sql.DB, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		checks := fiber.Map{}
		ready := true

		if checker != nil {
			status, _ := checker.Health(ctx)
			checks["classifier"] = status.String()
			if status == classifier.HealthOffline {
				ready = false
			}
		}

		if sqlDB != nil {
			checks["postgres"] = "ok"
			if err := sqlDB.PingContext(ctx); err != nil {
				checks["postgres"] = "down"
				ready = false
			}
		}

		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = "down"
				ready = false
			}
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if !ready {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
