package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/records-service/internal/api/dto"
)

// HealthHandler responds to liveness checks. It never touches the backend.
type HealthHandler struct{}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health GET /health.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthResponse{Status: "healthy"})
}
