package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/events"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping func() error
	hub  *events.Hub
}

// NewHealthHandler reports on the store through ping; a nil ping means the
// in-memory store is in use.
func NewHealthHandler(ping func() error, hub *events.Hub) *HealthHandler {
	return &HealthHandler{ping: ping, hub: hub}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "memory"
	if h.ping != nil {
		dbStatus = "ok"
		if err := h.ping(); err != nil {
			dbStatus = "unhealthy: " + err.Error()
		}
	}

	subscribers := 0
	if h.hub != nil {
		subscribers = h.hub.Subscribers()
	}

	return c.JSON(dto.HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		DB:          dbStatus,
		Subscribers: subscribers,
	})
}
