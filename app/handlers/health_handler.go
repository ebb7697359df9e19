package handlers

import (
	"context"
	"time"

	"github.com/amirphl/orochi-idgen/utils"
	"github.com/gofiber/fiber/v3"
)

// Pinger is anything the health check can probe
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports liveness of the service and its backing stores
type HealthHandler struct {
	checks  map[string]Pinger
	version string
	timeout time.Duration
}

// NewHealthHandler creates a health handler; checks are keyed by the component name
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, version: version, timeout: 3 * time.Second}
}

// Check probes every component and answers 503 when one of them is down
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := requestContext(h.timeout)
	defer cancel()

	components := make(fiber.Map, len(h.checks))
	healthy := true
	for name, p := range h.checks {
		if err := p.PingContext(ctx); err != nil {
			healthy = false
			components[name] = fiber.Map{"status": "down", "error": err.Error()}
			continue
		}
		components[name] = fiber.Map{"status": "up"}
	}

	data := fiber.Map{
		"status":     "ok",
		"timestamp":  utils.UTCNow().Unix(),
		"version":    h.version,
		"service":    "orochi-idgen",
		"components": components,
	}
	if !healthy {
		data["status"] = "degraded"
		return ErrorResponse(c, fiber.StatusServiceUnavailable, "Service is degraded", "UNHEALTHY", data)
	}
	return SuccessResponse(c, fiber.StatusOK, "Service is healthy", data)
}
