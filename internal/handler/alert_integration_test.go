package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/transport"
	"go.uber.org/zap"
)

type stubAlertService struct {
	activeFn   func(ctx context.Context) ([]domain.Alert, error)
	resolveFn  func(ctx context.Context, id string) (*domain.Alert, error)
	clearAllFn func(ctx context.Context) error
}

func (s *stubAlertService) Active(ctx context.Context) ([]domain.Alert, error) {
	if s.activeFn != nil {
		return s.activeFn(ctx)
	}
	return nil, nil
}

func (s *stubAlertService) Resolve(ctx context.Context, id string) (*domain.Alert, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubAlertService) ClearAll(ctx context.Context) error {
	if s.clearAllFn != nil {
		return s.clearAllFn(ctx)
	}
	return nil
}

func newAlertTestApp(t *testing.T, svc AlertService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterAlertRoutes(app, svc); err != nil {
		t.Fatalf("RegisterAlertRoutes() error = %v", err)
	}

	return app
}

func TestAlertIntegration_ListActive(t *testing.T) {
	t.Parallel()

	svc := &stubAlertService{
		activeFn: func(ctx context.Context) ([]domain.Alert, error) {
			return []domain.Alert{
				{ID: "a1", Type: domain.AlertTypeMachineFailure, Severity: domain.AlertSeverityHigh, MachineID: "m1"},
			}, nil
		},
	}
	app := newAlertTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/alerts", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var alerts []map[string]any
	if err := json.Unmarshal(body, &alerts); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if alerts[0]["type"] != "MACHINE_FAILURE" || alerts[0]["severity"] != "HIGH" {
		t.Fatalf("alert = %+v", alerts[0])
	}
}

func TestAlertIntegration_ResolveAlreadyResolvedConflicts(t *testing.T) {
	t.Parallel()

	svc := &stubAlertService{
		resolveFn: func(ctx context.Context, id string) (*domain.Alert, error) {
			return nil, fmt.Errorf("%w: alert %s is already resolved", domain.ErrConflict, id)
		},
	}
	app := newAlertTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/alerts/a1/resolve", "{}")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestAlertIntegration_ClearAll(t *testing.T) {
	t.Parallel()

	cleared := false
	svc := &stubAlertService{
		clearAllFn: func(ctx context.Context) error {
			cleared = true
			return nil
		},
	}
	app := newAlertTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodDelete, "/v1/alerts", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if !cleared {
		t.Fatal("expected ClearAll to be called")
	}
}
