package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nadigross/userbase/internal/services"
)

type HealthHandler struct {
	healthService *services.HealthService
}

func NewHealthHandler(healthService *services.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	resp := h.healthService.Check(c.UserContext())
	if resp.Status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
