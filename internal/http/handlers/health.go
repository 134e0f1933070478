package handlers

import (
	"database/sql"
	"time"

	"github.com/gabriel/boxd-companion/internal/scheduler"
	"github.com/gofiber/fiber/v2"
)

// ProbeReporter exposes the latest aggregator probe, if any.
type ProbeReporter interface {
	Last() (scheduler.ProbeResult, bool)
}

type HealthHandler struct {
	db     *sql.DB
	prober ProbeReporter
}

func NewHealthHandler(db *sql.DB, prober ProbeReporter) *HealthHandler {
	return &HealthHandler{db: db, prober: prober}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	payload := fiber.Map{
		"status": "ok",
		"db":     "up",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.prober != nil {
		if last, ok := h.prober.Last(); ok {
			payload["aggregator"] = last
		}
	}

	if err := h.db.PingContext(c.UserContext()); err != nil {
		payload["status"] = "degraded"
		payload["db"] = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(payload)
	}
	return c.JSON(payload)
}
