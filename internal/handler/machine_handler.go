package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prodmon/factory-engine/internal/domain"
)

type MachineService interface {
	Create(ctx context.Context, machine *domain.Machine) (*domain.Machine, []domain.Event, error)
	Update(ctx context.Context, id string, updated *domain.Machine) (*domain.Machine, []domain.Event, error)
	UpdateStatus(ctx context.Context, id string, status domain.MachineStatus) ([]domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Machine, error)
	List(ctx context.Context) ([]domain.Machine, error)
	Delete(ctx context.Context, id string) error
}

type MachineHandler struct {
	service    MachineService
	dispatcher EventDispatcher
}

func NewMachineHandler(service MachineService, dispatcher EventDispatcher) (*MachineHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("machine service is required")
	}
	return &MachineHandler{service: service, dispatcher: dispatcher}, nil
}

func RegisterMachineRoutes(router fiber.Router, service MachineService, dispatcher EventDispatcher) error {
	h, err := NewMachineHandler(service, dispatcher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/machines", h.CreateMachine)
	v1.Put("/machines/:id", h.UpdateMachine)
	v1.Post("/machines/:id/status", h.UpdateMachineStatus)
	v1.Post("/machines/:id/available", h.setStatusHandler(domain.MachineStatusAvailable))
	v1.Post("/machines/:id/running", h.setStatusHandler(domain.MachineStatusRunning))
	v1.Post("/machines/:id/paused", h.setStatusHandler(domain.MachineStatusPaused))
	v1.Post("/machines/:id/error", h.setStatusHandler(domain.MachineStatusError))
	v1.Get("/machines/:id", h.GetMachine)
	v1.Get("/machines", h.ListMachines)
	v1.Delete("/machines/:id", h.DeleteMachine)

	return nil
}

type machineRequest struct {
	Name                string     `json:"name"`
	ManufactureDate     *time.Time `json:"manufactureDate"`
	LastMaintenanceDate *time.Time `json:"lastMaintenanceDate,omitempty"`
}

type machineStatusRequest struct {
	Status string `json:"status"`
}

type machineResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	ManufactureDate     time.Time  `json:"manufactureDate"`
	LastMaintenanceDate *time.Time `json:"lastMaintenanceDate,omitempty"`
	NextMaintenanceDue  *time.Time `json:"nextMaintenanceDue,omitempty"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (h *MachineHandler) CreateMachine(c *fiber.Ctx) error {
	var req machineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	machine := requestToDomainMachine(req)
	created, events, err := h.service.Create(c.Context(), &machine)
	if err != nil {
		return toHTTPError(err)
	}

	h.dispatch(c, events)

	return c.Status(fiber.StatusCreated).JSON(toMachineResponse(created))
}

func (h *MachineHandler) UpdateMachine(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req machineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	machine := requestToDomainMachine(req)
	updated, events, err := h.service.Update(c.Context(), id, &machine)
	if err != nil {
		return toHTTPError(err)
	}

	h.dispatch(c, events)

	return c.Status(fiber.StatusOK).JSON(toMachineResponse(updated))
}

func (h *MachineHandler) UpdateMachineStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req machineStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status, err := domain.ParseMachineStatusFromString(req.Status)
	if err != nil {
		return toHTTPError(err)
	}

	events, err := h.service.UpdateStatus(c.Context(), id, status)
	if err != nil {
		return toHTTPError(err)
	}

	h.dispatch(c, events)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"machineId": id,
		"status":    status.String(),
	})
}

// setStatusHandler binds one target status to a route so callers can flip a
// machine without building a request body.
func (h *MachineHandler) setStatusHandler(status domain.MachineStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))

		events, err := h.service.UpdateStatus(c.Context(), id, status)
		if err != nil {
			return toHTTPError(err)
		}

		h.dispatch(c, events)

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"machineId": id,
			"status":    status.String(),
		})
	}
}

func (h *MachineHandler) GetMachine(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	machine, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMachineResponse(machine))
}

func (h *MachineHandler) ListMachines(c *fiber.Ctx) error {
	machines, err := h.service.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]machineResponse, 0, len(machines))
	for _, machine := range machines {
		m := machine
		responses = append(responses, toMachineResponse(&m))
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *MachineHandler) DeleteMachine(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MachineHandler) dispatch(c *fiber.Ctx, events []domain.Event) {
	if h.dispatcher == nil || len(events) == 0 {
		return
	}
	h.dispatcher.Dispatch(c.Context(), events)
}

func requestToDomainMachine(req machineRequest) domain.Machine {
	m := domain.Machine{
		Name:                strings.TrimSpace(req.Name),
		LastMaintenanceDate: req.LastMaintenanceDate,
	}
	if req.ManufactureDate != nil {
		m.ManufactureDate = *req.ManufactureDate
	}
	return m
}

func toMachineResponse(m *domain.Machine) machineResponse {
	if m == nil {
		return machineResponse{}
	}

	return machineResponse{
		ID:                  m.ID,
		Name:                m.Name,
		ManufactureDate:     m.ManufactureDate,
		LastMaintenanceDate: m.LastMaintenanceDate,
		NextMaintenanceDue:  m.NextMaintenanceDue,
		Status:              m.Status.String(),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
