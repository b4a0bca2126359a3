package events

import (
	"context"
	"time"

	"github.com/prodmon/factory-engine/internal/alerting"
	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/observability"
	"github.com/prodmon/factory-engine/internal/queue"
	"go.uber.org/zap"
)

// Dispatcher forwards committed domain events to the external sinks.
// Delivery is fire-and-forget: the state change has already committed, so
// a sink failure is logged and dropped rather than rolled back.
type Dispatcher struct {
	publisher queue.Publisher
	alerts    alerting.Sink
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewDispatcher(publisher queue.Publisher, alerts alerting.Sink, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		publisher: publisher,
		alerts:    alerts,
		logger:    logger,
		now:       time.Now,
	}
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Event) {
	if d == nil {
		return
	}

	for _, evt := range events {
		d.notifySink(ctx, evt)
		d.publish(ctx, evt)
	}
}

func (d *Dispatcher) notifySink(ctx context.Context, evt domain.Event) {
	var alert domain.Alert
	switch e := evt.(type) {
	case domain.MachineFailed:
		alert = domain.Alert{
			Type:        domain.AlertTypeMachineFailure,
			Severity:    domain.AlertSeverityHigh,
			MachineID:   e.MachineID,
			MachineName: e.MachineName,
			Message:     "Machine failed",
		}
	case domain.MaintenanceDue:
		alert = domain.Alert{
			Type:        domain.AlertTypeMaintenance,
			Severity:    domain.AlertSeverityMedium,
			MachineID:   e.MachineID,
			MachineName: e.MachineName,
			Message:     "Maintenance due",
		}
	default:
		return
	}

	if d.metrics != nil {
		d.metrics.IncAlertRaised(alert.Type.String())
	}
	if d.alerts == nil {
		return
	}

	if err := d.alerts.RaiseAlert(ctx, alert); err != nil {
		d.logger.Warn("alert sink delivery failed",
			zap.String("type", alert.Type.String()),
			zap.String("machineId", alert.MachineID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) publish(ctx context.Context, evt domain.Event) {
	if d.publisher == nil {
		return
	}

	msg, queueName, err := queue.FromEvent(evt, d.now().UTC())
	if err != nil {
		d.logger.Warn("unpublishable event", zap.Error(err))
		return
	}

	if err := d.publisher.Publish(ctx, queueName, msg); err != nil {
		if d.metrics != nil {
			d.metrics.IncEventPublished(string(msg.EventType), "error")
		}
		d.logger.Warn("event publish failed",
			zap.String("queue", queueName),
			zap.String("eventType", string(msg.EventType)),
			zap.Error(err),
		)
		return
	}

	if d.metrics != nil {
		d.metrics.IncEventPublished(string(msg.EventType), "ok")
	}
}
