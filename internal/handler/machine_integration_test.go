package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/transport"
	"go.uber.org/zap"
)

type stubMachineService struct {
	createFn       func(ctx context.Context, machine *domain.Machine) (*domain.Machine, []domain.Event, error)
	updateFn       func(ctx context.Context, id string, updated *domain.Machine) (*domain.Machine, []domain.Event, error)
	updateStatusFn func(ctx context.Context, id string, status domain.MachineStatus) ([]domain.Event, error)
	getByIDFn      func(ctx context.Context, id string) (*domain.Machine, error)
	listFn         func(ctx context.Context) ([]domain.Machine, error)
	deleteFn       func(ctx context.Context, id string) error
}

func (s *stubMachineService) Create(ctx context.Context, machine *domain.Machine) (*domain.Machine, []domain.Event, error) {
	if s.createFn != nil {
		return s.createFn(ctx, machine)
	}
	return machine, nil, nil
}

func (s *stubMachineService) Update(ctx context.Context, id string, updated *domain.Machine) (*domain.Machine, []domain.Event, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, updated)
	}
	return updated, nil, nil
}

func (s *stubMachineService) UpdateStatus(ctx context.Context, id string, status domain.MachineStatus) ([]domain.Event, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, id, status)
	}
	return nil, nil
}

func (s *stubMachineService) GetByID(ctx context.Context, id string) (*domain.Machine, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubMachineService) List(ctx context.Context) ([]domain.Machine, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubMachineService) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func newMachineTestApp(t *testing.T, svc MachineService, dispatcher EventDispatcher) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterMachineRoutes(app, svc, dispatcher); err != nil {
		t.Fatalf("RegisterMachineRoutes() error = %v", err)
	}

	return app
}

func TestMachineIntegration_CreateMachine(t *testing.T) {
	t.Parallel()

	svc := &stubMachineService{
		createFn: func(ctx context.Context, machine *domain.Machine) (*domain.Machine, []domain.Event, error) {
			machine.ID = "m-created"
			machine.Status = domain.MachineStatusAvailable
			return machine, nil, nil
		},
	}
	app := newMachineTestApp(t, svc, &stubDispatcher{})

	body := `{"name":"press-1","manufactureDate":"2024-01-15T00:00:00Z"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/machines", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(respBody))
	}

	var created map[string]any
	if err := json.Unmarshal(respBody, &created); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if created["id"] != "m-created" {
		t.Fatalf("id = %v, want m-created", created["id"])
	}
	if created["status"] != domain.MachineStatusAvailable.String() {
		t.Fatalf("status = %v, want AVAILABLE", created["status"])
	}
}

func TestMachineIntegration_StatusChangeDispatchesEvents(t *testing.T) {
	t.Parallel()

	svc := &stubMachineService{
		updateStatusFn: func(ctx context.Context, id string, status domain.MachineStatus) ([]domain.Event, error) {
			if status != domain.MachineStatusError {
				t.Errorf("status = %s, want ERROR", status)
			}
			return []domain.Event{domain.MachineFailed{MachineID: id, MachineName: "press-1"}}, nil
		},
	}
	dispatcher := &stubDispatcher{}
	app := newMachineTestApp(t, svc, dispatcher)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/machines/m1/status", `{"status":"ERROR"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(dispatcher.events) != 1 {
		t.Fatalf("dispatched events = %d, want 1", len(dispatcher.events))
	}
}

func TestMachineIntegration_StatusShortcutRoutes(t *testing.T) {
	t.Parallel()

	var gotStatus domain.MachineStatus
	svc := &stubMachineService{
		updateStatusFn: func(ctx context.Context, id string, status domain.MachineStatus) ([]domain.Event, error) {
			gotStatus = status
			return nil, nil
		},
	}
	app := newMachineTestApp(t, svc, &stubDispatcher{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/machines/m1/paused", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gotStatus != domain.MachineStatusPaused {
		t.Fatalf("status = %s, want PAUSED", gotStatus)
	}
}

func TestMachineIntegration_StatusRejectsUnknownValue(t *testing.T) {
	t.Parallel()

	app := newMachineTestApp(t, &stubMachineService{}, &stubDispatcher{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/machines/m1/status", `{"status":"BROKEN"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMachineIntegration_DeleteWithActiveBatchConflicts(t *testing.T) {
	t.Parallel()

	svc := &stubMachineService{
		deleteFn: func(ctx context.Context, id string) error {
			return fmt.Errorf("%w: machine %s has an active batch", domain.ErrConflict, id)
		},
	}
	app := newMachineTestApp(t, svc, &stubDispatcher{})

	resp, _ := performRequest(t, app, http.MethodDelete, "/v1/machines/m1", "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestMachineIntegration_ListMachines(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	svc := &stubMachineService{
		listFn: func(ctx context.Context) ([]domain.Machine, error) {
			return []domain.Machine{
				{ID: "m1", Name: "press-1", Status: domain.MachineStatusAvailable, NextMaintenanceDue: &due},
				{ID: "m2", Name: "press-2", Status: domain.MachineStatusRunning},
			}, nil
		},
	}
	app := newMachineTestApp(t, svc, &stubDispatcher{})

	resp, body := performRequest(t, app, http.MethodGet, "/v1/machines", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var machines []map[string]any
	if err := json.Unmarshal(body, &machines); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(machines) != 2 {
		t.Fatalf("machines = %d, want 2", len(machines))
	}
	if machines[0]["nextMaintenanceDue"] == nil {
		t.Fatal("expected nextMaintenanceDue on first machine")
	}
}
