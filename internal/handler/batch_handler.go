package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prodmon/factory-engine/internal/domain"
)

type BatchService interface {
	Create(ctx context.Context, batch *domain.Batch) (*domain.Batch, error)
	Update(ctx context.Context, id string, updated *domain.Batch) (*domain.Batch, error)
	Start(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) ([]domain.Event, error)
	Fail(ctx context.Context, id string, reason string) ([]domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	List(ctx context.Context) ([]domain.Batch, error)
}

type BatchHandler struct {
	service    BatchService
	dispatcher EventDispatcher
}

func NewBatchHandler(service BatchService, dispatcher EventDispatcher) (*BatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	return &BatchHandler{service: service, dispatcher: dispatcher}, nil
}

func RegisterBatchRoutes(router fiber.Router, service BatchService, dispatcher EventDispatcher) error {
	h, err := NewBatchHandler(service, dispatcher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/batches", h.CreateBatch)
	v1.Put("/batches/:id", h.UpdateBatch)
	v1.Post("/batches/:id/start", h.StartBatch)
	v1.Post("/batches/:id/pause", h.PauseBatch)
	v1.Post("/batches/:id/complete", h.CompleteBatch)
	v1.Post("/batches/:id/fail", h.FailBatch)
	v1.Get("/batches/:id", h.GetBatch)
	v1.Get("/batches", h.ListBatches)

	return nil
}

type batchMaterialRequest struct {
	MaterialID string `json:"materialId"`
	Quantity   int    `json:"quantity"`
}

type batchRequest struct {
	ProductName        string                 `json:"productName"`
	TargetQty          int                    `json:"targetQty"`
	MachineID          string                 `json:"machineId"`
	OperatorID         string                 `json:"operatorId"`
	EstimatedStartTime *time.Time             `json:"estimatedStartTime,omitempty"`
	EstimatedEndTime   *time.Time             `json:"estimatedEndTime,omitempty"`
	Materials          []batchMaterialRequest `json:"materials"`
}

type failBatchRequest struct {
	Reason string `json:"reason"`
}

type batchMaterialResponse struct {
	MaterialID string `json:"materialId"`
	Quantity   int    `json:"quantity"`
}

type batchResponse struct {
	ID                 string                  `json:"id"`
	ProductName        string                  `json:"productName"`
	TargetQty          int                     `json:"targetQty"`
	MachineID          string                  `json:"machineId"`
	OperatorID         string                  `json:"operatorId"`
	Status             string                  `json:"status"`
	EstimatedStartTime *time.Time              `json:"estimatedStartTime,omitempty"`
	EstimatedEndTime   *time.Time              `json:"estimatedEndTime,omitempty"`
	ActualStartTime    *time.Time              `json:"actualStartTime,omitempty"`
	ActualEndTime      *time.Time              `json:"actualEndTime,omitempty"`
	FailureReason      *string                 `json:"failureReason,omitempty"`
	Materials          []batchMaterialResponse `json:"materials"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
}

func (h *BatchHandler) CreateBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	batch := requestToDomainBatch(req)
	created, err := h.service.Create(c.Context(), &batch)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toBatchResponse(created))
}

func (h *BatchHandler) UpdateBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	batch := requestToDomainBatch(req)
	updated, err := h.service.Update(c.Context(), id, &batch)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchResponse(updated))
}

func (h *BatchHandler) StartBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Start(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"batchId": id,
		"status":  domain.BatchStatusInProgress.String(),
	})
}

func (h *BatchHandler) PauseBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Pause(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"batchId": id,
		"status":  domain.BatchStatusPaused.String(),
	})
}

func (h *BatchHandler) CompleteBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	events, err := h.service.Complete(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	h.dispatch(c, events)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"batchId": id,
		"status":  domain.BatchStatusCompleted.String(),
	})
}

func (h *BatchHandler) FailBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req failBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	events, err := h.service.Fail(c.Context(), id, req.Reason)
	if err != nil {
		return toHTTPError(err)
	}

	h.dispatch(c, events)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"batchId": id,
		"status":  domain.BatchStatusFailed.String(),
	})
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	batch, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchResponse(batch))
}

func (h *BatchHandler) ListBatches(c *fiber.Ctx) error {
	batches, err := h.service.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]batchResponse, 0, len(batches))
	for _, batch := range batches {
		b := batch
		responses = append(responses, toBatchResponse(&b))
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *BatchHandler) dispatch(c *fiber.Ctx, events []domain.Event) {
	if h.dispatcher == nil || len(events) == 0 {
		return
	}
	h.dispatcher.Dispatch(c.Context(), events)
}

func requestToDomainBatch(req batchRequest) domain.Batch {
	materials := make([]domain.BatchMaterial, 0, len(req.Materials))
	for _, item := range req.Materials {
		materials = append(materials, domain.BatchMaterial{
			MaterialID: strings.TrimSpace(item.MaterialID),
			Quantity:   item.Quantity,
		})
	}

	return domain.Batch{
		ProductName:        strings.TrimSpace(req.ProductName),
		TargetQty:          req.TargetQty,
		MachineID:          strings.TrimSpace(req.MachineID),
		OperatorID:         strings.TrimSpace(req.OperatorID),
		EstimatedStartTime: req.EstimatedStartTime,
		EstimatedEndTime:   req.EstimatedEndTime,
		Materials:          materials,
	}
}

func toBatchResponse(b *domain.Batch) batchResponse {
	if b == nil {
		return batchResponse{}
	}

	materials := make([]batchMaterialResponse, 0, len(b.Materials))
	for _, bm := range b.Materials {
		materials = append(materials, batchMaterialResponse{
			MaterialID: bm.MaterialID,
			Quantity:   bm.Quantity,
		})
	}

	return batchResponse{
		ID:                 b.ID,
		ProductName:        b.ProductName,
		TargetQty:          b.TargetQty,
		MachineID:          b.MachineID,
		OperatorID:         b.OperatorID,
		Status:             b.Status.String(),
		EstimatedStartTime: b.EstimatedStartTime,
		EstimatedEndTime:   b.EstimatedEndTime,
		ActualStartTime:    b.ActualStartTime,
		ActualEndTime:      b.ActualEndTime,
		FailureReason:      b.FailureReason,
		Materials:          materials,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
