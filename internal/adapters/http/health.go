package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// LegacyHealthHandler serves the original health endpoint, body unchanged
// for clients that string-match it.
func LegacyHealthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}
}

// ReadyHandler checks that the granule collection is reachable and listable.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		// Data directory
		if deps.Granules != nil {
			if err := deps.Granules.Ping(ctx); err != nil {
				checks["data_dir"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["data_dir"] = "ok"
			}

			if paths, err := deps.Granules.List(ctx); err != nil {
				checks["granules"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["granules"] = strconv.Itoa(len(paths))
			}
		} else {
			checks["data_dir"] = "not configured"
			allOK = false
		}

		// Catalog refresh age, informational only
		if deps.Catalog != nil {
			if last := deps.Catalog.LastRefresh(); last.IsZero() {
				checks["catalog_refresh"] = "never"
			} else {
				checks["catalog_refresh"] = last.UTC().Format(time.RFC3339)
			}
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
