package alerting

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prodmon/factory-engine/internal/domain"
)

const defaultWebhookTimeout = 10 * time.Second

type alertRequest struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	MachineID   string `json:"machineId"`
	MachineName string `json:"machineName"`
	Message     string `json:"message"`
}

var _ Sink = (*WebhookSink)(nil)

// WebhookSink delivers alert notifications to an HTTP endpoint.
type WebhookSink struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookSink(endpoint string) (*WebhookSink, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookSinkWithClient(endpoint, client)
}

func NewWebhookSinkWithClient(endpoint string, client *resty.Client) (*WebhookSink, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookSink{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (s *WebhookSink) RaiseAlert(ctx context.Context, alert domain.Alert) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("webhook sink is not initialized")
	}
	if !alert.Type.IsValid() {
		return fmt.Errorf("invalid alert type %q", alert.Type)
	}

	reqBody := alertRequest{
		Type:        alert.Type.String(),
		Severity:    alert.Severity.String(),
		MachineID:   alert.MachineID,
		MachineName: alert.MachineName,
		Message:     alert.Message,
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(s.endpoint)
	if err != nil {
		return fmt.Errorf("failed to deliver alert: %w", err)
	}
	if response.IsError() {
		return fmt.Errorf("alert sink responded %d", response.StatusCode())
	}

	return nil
}
