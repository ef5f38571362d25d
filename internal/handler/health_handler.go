package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// healthPingTimeout bounds each dependency ping so a hung backend cannot stall the health check.
const healthPingTimeout = 2 * time.Second

// Pinger is anything the health check can ping: the Postgres pool, the Redis store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name   string
	pinger Pinger
}

// HealthHandler reports whether the API's backing services are reachable.
type HealthHandler struct {
	deps []dependency
}

// NewHealthHandler checks the database and, when non-nil, the keyed store.
// The in-memory store has nothing to ping, so callers pass nil for it.
func NewHealthHandler(db Pinger, store Pinger) *HealthHandler {
	h := &HealthHandler{deps: []dependency{{name: "database", pinger: db}}}
	if store != nil {
		h.deps = append(h.deps, dependency{name: "kvstore", pinger: store})
	}
	return h
}

// Check handles GET /health. Every dependency is pinged; the response lists each
// one as "ok" or "unreachable" and answers 503 if any is unreachable.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true
	for _, d := range h.deps {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
		err := d.pinger.Ping(ctx)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("dependency", d.name).Msg("health check failed")
			checks[d.name] = "unreachable"
			healthy = false
			continue
		}
		checks[d.name] = "ok"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"checks": checks,
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"checks": checks,
	})
}
