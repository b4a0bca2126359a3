package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prodmon/factory-engine/internal/domain"
)

func TestWebhookSinkRaiseAlertSuccess(t *testing.T) {
	t.Parallel()

	var gotBody alertRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := NewWebhookSink(server.URL)
	if err != nil {
		t.Fatalf("NewWebhookSink() error = %v", err)
	}

	alert := domain.Alert{
		Type:        domain.AlertTypeMachineFailure,
		Severity:    domain.AlertSeverityHigh,
		MachineID:   "m1",
		MachineName: "press-1",
		Message:     "Machine failed",
	}

	if err := sink.RaiseAlert(context.Background(), alert); err != nil {
		t.Fatalf("RaiseAlert() unexpected error: %v", err)
	}

	if gotBody.Type != "MACHINE_FAILURE" {
		t.Fatalf("request.type = %q, want MACHINE_FAILURE", gotBody.Type)
	}
	if gotBody.Severity != "HIGH" {
		t.Fatalf("request.severity = %q, want HIGH", gotBody.Severity)
	}
	if gotBody.MachineID != "m1" {
		t.Fatalf("request.machineId = %q, want m1", gotBody.MachineID)
	}
}

func TestWebhookSinkRaiseAlertServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink, err := NewWebhookSink(server.URL)
	if err != nil {
		t.Fatalf("NewWebhookSink() error = %v", err)
	}

	alert := domain.Alert{
		Type:      domain.AlertTypeMaintenance,
		Severity:  domain.AlertSeverityMedium,
		MachineID: "m1",
	}
	if err := sink.RaiseAlert(context.Background(), alert); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestWebhookSinkRejectsInvalidAlertType(t *testing.T) {
	t.Parallel()

	sink, err := NewWebhookSink("http://localhost:1")
	if err != nil {
		t.Fatalf("NewWebhookSink() error = %v", err)
	}

	alert := domain.Alert{Type: domain.AlertType("WEATHER")}
	if err := sink.RaiseAlert(context.Background(), alert); err == nil {
		t.Fatal("expected error for invalid alert type")
	}
}

func TestNewWebhookSinkValidatesEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := NewWebhookSink(""); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewWebhookSink("::not-a-url"); err == nil {
		t.Fatal("expected error for malformed endpoint")
	}
}
