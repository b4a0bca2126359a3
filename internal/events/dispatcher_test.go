package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/queue"
)

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.EventMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.EventMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeSink struct {
	raiseFn func(ctx context.Context, alert domain.Alert) error
}

func (f *fakeSink) RaiseAlert(ctx context.Context, alert domain.Alert) error {
	if f.raiseFn != nil {
		return f.raiseFn(ctx, alert)
	}
	return nil
}

func TestDispatcherRoutesEvents(t *testing.T) {
	t.Parallel()

	published := make(map[string]string)
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.EventMessage) error {
			published[string(msg.EventType)] = queueName
			return nil
		},
	}

	var raised []domain.Alert
	sink := &fakeSink{
		raiseFn: func(ctx context.Context, alert domain.Alert) error {
			raised = append(raised, alert)
			return nil
		},
	}

	d := NewDispatcher(publisher, sink, nil)
	d.Dispatch(context.Background(), []domain.Event{
		domain.MachineFailed{MachineID: "m1", MachineName: "press-1"},
		domain.MaintenanceDue{MachineID: "m2", MachineName: "press-2", DueDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		domain.BatchFinished{Snapshot: domain.ProductionLog{BatchID: "b1", StartTime: time.Now()}},
	})

	if got := published[string(domain.EventMachineFailed)]; got != queue.AlertQueue {
		t.Fatalf("machine failed published to %q, want %q", got, queue.AlertQueue)
	}
	if got := published[string(domain.EventMaintenanceDue)]; got != queue.AlertQueue {
		t.Fatalf("maintenance due published to %q, want %q", got, queue.AlertQueue)
	}
	if got := published[string(domain.EventBatchFinished)]; got != queue.ProductionLogQueue {
		t.Fatalf("batch finished published to %q, want %q", got, queue.ProductionLogQueue)
	}

	if len(raised) != 2 {
		t.Fatalf("alerts raised = %d, want 2 (finished batches are not alerts)", len(raised))
	}
	if raised[0].Type != domain.AlertTypeMachineFailure || raised[0].Severity != domain.AlertSeverityHigh {
		t.Fatalf("first alert = %+v", raised[0])
	}
	if raised[1].Type != domain.AlertTypeMaintenance || raised[1].Severity != domain.AlertSeverityMedium {
		t.Fatalf("second alert = %+v", raised[1])
	}
}

func TestDispatcherSwallowsSinkFailures(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.EventMessage) error {
			return errors.New("broker down")
		},
	}
	sink := &fakeSink{
		raiseFn: func(ctx context.Context, alert domain.Alert) error {
			return errors.New("webhook down")
		},
	}

	d := NewDispatcher(publisher, sink, nil)
	// Delivery failures after commit are logged and dropped, never raised.
	d.Dispatch(context.Background(), []domain.Event{
		domain.MachineFailed{MachineID: "m1", MachineName: "press-1"},
	})
}

func TestDispatcherNilSinksAreSafe(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, nil, nil)
	d.Dispatch(context.Background(), []domain.Event{
		domain.BatchFinished{Snapshot: domain.ProductionLog{BatchID: "b1"}},
	})
}
