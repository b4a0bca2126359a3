package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prodmon/factory-engine/internal/domain"
)

type ProductionLogService interface {
	ListCompleted(ctx context.Context, from, to *time.Time) ([]domain.ProductionLog, error)
	ListFailed(ctx context.Context, from, to *time.Time) ([]domain.ProductionLog, error)
}

type ProductionLogHandler struct {
	service ProductionLogService
}

func NewProductionLogHandler(service ProductionLogService) (*ProductionLogHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("production log service is required")
	}
	return &ProductionLogHandler{service: service}, nil
}

func RegisterProductionLogRoutes(router fiber.Router, service ProductionLogService) error {
	h, err := NewProductionLogHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/production-logs", h.ListProductionLogs)

	return nil
}

type productionLogResponse struct {
	ID          string     `json:"id"`
	BatchID     string     `json:"batchId"`
	ProductName string     `json:"productName"`
	ProducedQty int        `json:"producedQty"`
	MachineID   string     `json:"machineId"`
	OperatorID  string     `json:"operatorId"`
	Shift       string     `json:"shift"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (h *ProductionLogHandler) ListProductionLogs(c *fiber.Ctx) error {
	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return toHTTPError(err)
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return toHTTPError(err)
	}

	status := strings.ToUpper(strings.TrimSpace(c.Query("status", domain.ProductionStatusCompleted.String())))

	var logs []domain.ProductionLog
	switch status {
	case domain.ProductionStatusCompleted.String():
		logs, err = h.service.ListCompleted(c.Context(), from, to)
	case domain.ProductionStatusFailed.String():
		logs, err = h.service.ListFailed(c.Context(), from, to)
	default:
		return toHTTPError(fmt.Errorf("%w: invalid production status %q", domain.ErrValidation, status))
	}
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]productionLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, toProductionLogResponse(log))
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func toProductionLogResponse(l domain.ProductionLog) productionLogResponse {
	return productionLogResponse{
		ID:          l.ID,
		BatchID:     l.BatchID,
		ProductName: l.ProductName,
		ProducedQty: l.ProducedQty,
		MachineID:   l.MachineID,
		OperatorID:  l.OperatorID,
		Shift:       l.Shift.String(),
		StartTime:   l.StartTime,
		EndTime:     l.EndTime,
		Status:      l.Status.String(),
		CreatedAt:   l.CreatedAt,
	}
}
