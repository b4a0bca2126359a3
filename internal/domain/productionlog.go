package domain

import "time"

// ProductionStatus is the terminal outcome recorded in a production log.
type ProductionStatus string

const (
	ProductionStatusCompleted ProductionStatus = "COMPLETED"
	ProductionStatusFailed    ProductionStatus = "FAILED"
)

func (s ProductionStatus) String() string { return string(s) }

// Shift is the work shift a batch started in.
type Shift string

const (
	ShiftMorning Shift = "MORNING"
	ShiftEvening Shift = "EVENING"
	ShiftNight   Shift = "NIGHT"
)

func (s Shift) String() string { return string(s) }

// ResolveShift maps a start instant to its shift: 06-14 MORNING,
// 14-22 EVENING, otherwise NIGHT.
func ResolveShift(t time.Time) Shift {
	hour := t.Hour()
	switch {
	case hour >= 6 && hour < 14:
		return ShiftMorning
	case hour >= 14 && hour < 22:
		return ShiftEvening
	default:
		return ShiftNight
	}
}

// ProductionLog is an immutable snapshot of a finished batch, written once
// per terminal transition and never mutated afterwards.
type ProductionLog struct {
	ID          string
	BatchID     string
	ProductName string
	ProducedQty int
	MachineID   string
	OperatorID  string
	Shift       Shift
	StartTime   time.Time
	EndTime     *time.Time
	Status      ProductionStatus
	CreatedAt   time.Time
}

// ProductionSnapshot builds the log entry for a batch that reached a
// terminal status. A batch that never started produces no log, even if it
// was forced into a terminal state.
func ProductionSnapshot(b *Batch) (*ProductionLog, bool) {
	if b == nil || b.ActualStartTime == nil {
		return nil, false
	}

	status := ProductionStatusFailed
	if b.Status == BatchStatusCompleted {
		status = ProductionStatusCompleted
	}

	return &ProductionLog{
		BatchID:     b.ID,
		ProductName: b.ProductName,
		ProducedQty: b.TargetQty,
		MachineID:   b.MachineID,
		OperatorID:  b.OperatorID,
		Shift:       ResolveShift(*b.ActualStartTime),
		StartTime:   *b.ActualStartTime,
		EndTime:     b.ActualEndTime,
		Status:      status,
	}, true
}
