package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prodmon/factory-engine/internal/domain"
)

type MaterialService interface {
	GetByID(ctx context.Context, id string) (*domain.Material, error)
	List(ctx context.Context) ([]domain.Material, error)
	UpsertByIdentity(ctx context.Context, name string, grade int, location string, qty int) (*domain.Material, error)
}

type MaterialHandler struct {
	service MaterialService
}

func NewMaterialHandler(service MaterialService) (*MaterialHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("material service is required")
	}
	return &MaterialHandler{service: service}, nil
}

func RegisterMaterialRoutes(router fiber.Router, service MaterialService) error {
	h, err := NewMaterialHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/materials/intake", h.IntakeMaterial)
	v1.Get("/materials/:id", h.GetMaterial)
	v1.Get("/materials", h.ListMaterials)

	return nil
}

type intakeMaterialRequest struct {
	Name     string `json:"name"`
	Grade    int    `json:"grade"`
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
}

type materialResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     int       `json:"grade"`
	Location  string    `json:"location"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *MaterialHandler) IntakeMaterial(c *fiber.Ctx) error {
	var req intakeMaterialRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	material, err := h.service.UpsertByIdentity(c.Context(), req.Name, req.Grade, req.Location, req.Quantity)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMaterialResponse(material))
}

func (h *MaterialHandler) GetMaterial(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	material, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMaterialResponse(material))
}

func (h *MaterialHandler) ListMaterials(c *fiber.Ctx) error {
	materials, err := h.service.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]materialResponse, 0, len(materials))
	for _, material := range materials {
		m := material
		responses = append(responses, toMaterialResponse(&m))
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func toMaterialResponse(m *domain.Material) materialResponse {
	if m == nil {
		return materialResponse{}
	}

	return materialResponse{
		ID:        m.ID,
		Name:      m.Name,
		Grade:     m.Grade,
		Location:  m.Location,
		Stock:     m.Stock,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
