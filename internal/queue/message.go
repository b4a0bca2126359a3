package queue

import (
	"fmt"
	"time"

	"github.com/prodmon/factory-engine/internal/domain"
)

// EventMessage is the broker payload for a domain event. Machine fields
// are set for alert events, Production for finished batches.
type EventMessage struct {
	EventType   domain.EventType  `json:"eventType"`
	MachineID   string            `json:"machineId,omitempty"`
	MachineName string            `json:"machineName,omitempty"`
	DueDate     *time.Time        `json:"dueDate,omitempty"`
	Production  *ProductionRecord `json:"production,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// ProductionRecord mirrors the production-log snapshot for the reporting
// sink.
type ProductionRecord struct {
	BatchID     string     `json:"batchId"`
	ProductName string     `json:"productName"`
	ProducedQty int        `json:"producedQty"`
	MachineID   string     `json:"machineId"`
	OperatorID  string     `json:"operatorId"`
	Shift       string     `json:"shift"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Status      string     `json:"status"`
}

func (m EventMessage) Validate() error {
	switch m.EventType {
	case domain.EventMachineFailed, domain.EventMaintenanceDue:
		if m.MachineID == "" {
			return fmt.Errorf("machineId is required for %s", m.EventType)
		}
	case domain.EventBatchFinished:
		if m.Production == nil || m.Production.BatchID == "" {
			return fmt.Errorf("production record is required for %s", m.EventType)
		}
	default:
		return fmt.Errorf("unknown event type %q", m.EventType)
	}
	return nil
}

// FromEvent maps a domain event to its broker message and target queue.
func FromEvent(evt domain.Event, occurredAt time.Time) (EventMessage, string, error) {
	switch e := evt.(type) {
	case domain.MachineFailed:
		return EventMessage{
			EventType:   domain.EventMachineFailed,
			MachineID:   e.MachineID,
			MachineName: e.MachineName,
			OccurredAt:  occurredAt,
		}, AlertQueue, nil
	case domain.MaintenanceDue:
		due := e.DueDate
		return EventMessage{
			EventType:   domain.EventMaintenanceDue,
			MachineID:   e.MachineID,
			MachineName: e.MachineName,
			DueDate:     &due,
			OccurredAt:  occurredAt,
		}, AlertQueue, nil
	case domain.BatchFinished:
		return EventMessage{
			EventType: domain.EventBatchFinished,
			Production: &ProductionRecord{
				BatchID:     e.Snapshot.BatchID,
				ProductName: e.Snapshot.ProductName,
				ProducedQty: e.Snapshot.ProducedQty,
				MachineID:   e.Snapshot.MachineID,
				OperatorID:  e.Snapshot.OperatorID,
				Shift:       e.Snapshot.Shift.String(),
				StartTime:   e.Snapshot.StartTime,
				EndTime:     e.Snapshot.EndTime,
				Status:      e.Snapshot.Status.String(),
			},
			OccurredAt: occurredAt,
		}, ProductionLogQueue, nil
	default:
		return EventMessage{}, "", fmt.Errorf("unsupported event %T", evt)
	}
}
