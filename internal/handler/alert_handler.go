package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prodmon/factory-engine/internal/domain"
)

type AlertService interface {
	Active(ctx context.Context) ([]domain.Alert, error)
	Resolve(ctx context.Context, id string) (*domain.Alert, error)
	ClearAll(ctx context.Context) error
}

type AlertHandler struct {
	service AlertService
}

func NewAlertHandler(service AlertService) (*AlertHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("alert service is required")
	}
	return &AlertHandler{service: service}, nil
}

func RegisterAlertRoutes(router fiber.Router, service AlertService) error {
	h, err := NewAlertHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/alerts", h.ListActiveAlerts)
	v1.Post("/alerts/:id/resolve", h.ResolveAlert)
	v1.Delete("/alerts", h.ClearAlerts)

	return nil
}

type alertResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	MachineID   string    `json:"machineId"`
	MachineName string    `json:"machineName"`
	Message     string    `json:"message"`
	Resolved    bool      `json:"resolved"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *AlertHandler) ListActiveAlerts(c *fiber.Ctx) error {
	alerts, err := h.service.Active(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]alertResponse, 0, len(alerts))
	for _, alert := range alerts {
		responses = append(responses, toAlertResponse(alert))
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *AlertHandler) ResolveAlert(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	alert, err := h.service.Resolve(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toAlertResponse(*alert))
}

func (h *AlertHandler) ClearAlerts(c *fiber.Ctx) error {
	if err := h.service.ClearAll(c.Context()); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func toAlertResponse(a domain.Alert) alertResponse {
	return alertResponse{
		ID:          a.ID,
		Type:        a.Type.String(),
		Severity:    a.Severity.String(),
		MachineID:   a.MachineID,
		MachineName: a.MachineName,
		Message:     a.Message,
		Resolved:    a.Resolved,
		CreatedAt:   a.CreatedAt,
	}
}
