package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus represents the lifecycle state of a production batch.
type BatchStatus string

const (
	BatchStatusScheduled  BatchStatus = "SCHEDULED"
	BatchStatusInProgress BatchStatus = "IN_PROGRESS"
	BatchStatusPaused     BatchStatus = "PAUSED"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusFailed     BatchStatus = "FAILED"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusScheduled, BatchStatusInProgress, BatchStatusPaused,
		BatchStatusCompleted, BatchStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// IsActive reports whether the batch occupies its machine.
func (s BatchStatus) IsActive() bool {
	return s == BatchStatusInProgress || s == BatchStatusPaused
}

// CanTransitionTo reports whether next is a legal transition from s.
// SCHEDULED -> IN_PROGRESS <-> PAUSED; COMPLETED only from IN_PROGRESS;
// FAILED from IN_PROGRESS or PAUSED.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	switch next {
	case BatchStatusInProgress:
		return s == BatchStatusScheduled || s == BatchStatusPaused
	case BatchStatusPaused:
		return s == BatchStatusInProgress
	case BatchStatusCompleted:
		return s == BatchStatusInProgress
	case BatchStatusFailed:
		return s == BatchStatusInProgress || s == BatchStatusPaused
	}
	return false
}

func ParseBatchStatusFromString(s string) (BatchStatus, error) {
	st := BatchStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid batch status %q", ErrValidation, s)
	}
	return st, nil
}

// BatchMaterial binds a batch to a material with a reserved quantity.
// At most one reservation may exist per (batch, material) pair; the set is
// replaced wholesale when a SCHEDULED batch is edited.
type BatchMaterial struct {
	ID         string
	BatchID    string
	MaterialID string
	Quantity   int
}

// Batch is one scheduled run of a product on a machine, consuming reserved
// materials. Stock is reserved at creation and treated as consumed on
// completion; only a failed batch releases its reservations.
type Batch struct {
	ID                 string
	ProductName        string
	TargetQty          int
	MachineID          string
	OperatorID         string
	Status             BatchStatus
	EstimatedStartTime *time.Time
	EstimatedEndTime   *time.Time
	ActualStartTime    *time.Time
	ActualEndTime      *time.Time
	FailureReason      *string
	Materials          []BatchMaterial
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (b *Batch) Validate() error {
	if strings.TrimSpace(b.ProductName) == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if b.TargetQty <= 0 {
		return fmt.Errorf("%w: target quantity must be positive", ErrValidation)
	}
	if strings.TrimSpace(b.MachineID) == "" {
		return fmt.Errorf("%w: machine id is required", ErrValidation)
	}
	if strings.TrimSpace(b.OperatorID) == "" {
		return fmt.Errorf("%w: operator id is required", ErrValidation)
	}

	seen := make(map[string]struct{}, len(b.Materials))
	for _, bm := range b.Materials {
		if strings.TrimSpace(bm.MaterialID) == "" {
			return fmt.Errorf("%w: material id is required", ErrValidation)
		}
		if bm.Quantity <= 0 {
			return fmt.Errorf("%w: reserved quantity must be positive", ErrValidation)
		}
		if _, dup := seen[bm.MaterialID]; dup {
			return fmt.Errorf("%w: duplicate material %s in reservation list", ErrValidation, bm.MaterialID)
		}
		seen[bm.MaterialID] = struct{}{}
	}

	return nil
}
