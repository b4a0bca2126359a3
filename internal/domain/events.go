package domain

import "time"

// EventType identifies a domain event emitted by a lifecycle operation.
type EventType string

const (
	EventMachineFailed  EventType = "MACHINE_FAILED"
	EventMaintenanceDue EventType = "MAINTENANCE_DUE"
	EventBatchFinished  EventType = "BATCH_FINISHED"
)

// Event is a side effect produced by a committed lifecycle operation. The
// calling layer forwards events to the external sinks; the core never
// delivers them itself.
type Event interface {
	Kind() EventType
}

// MachineFailed is emitted when a machine transitions to ERROR.
type MachineFailed struct {
	MachineID   string
	MachineName string
}

func (MachineFailed) Kind() EventType { return EventMachineFailed }

// MaintenanceDue is emitted when a machine's maintenance due date is
// reached or passed.
type MaintenanceDue struct {
	MachineID   string
	MachineName string
	DueDate     time.Time
}

func (MaintenanceDue) Kind() EventType { return EventMaintenanceDue }

// BatchFinished is emitted when a batch reaches a terminal status with a
// recorded start time.
type BatchFinished struct {
	Snapshot ProductionLog
}

func (BatchFinished) Kind() EventType { return EventBatchFinished }
