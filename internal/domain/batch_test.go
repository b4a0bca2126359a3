package domain

import (
	"errors"
	"testing"
)

func TestBatchStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from BatchStatus
		to   BatchStatus
		want bool
	}{
		{name: "scheduled to in progress", from: BatchStatusScheduled, to: BatchStatusInProgress, want: true},
		{name: "in progress to paused", from: BatchStatusInProgress, to: BatchStatusPaused, want: true},
		{name: "paused resumes", from: BatchStatusPaused, to: BatchStatusInProgress, want: true},
		{name: "in progress completes", from: BatchStatusInProgress, to: BatchStatusCompleted, want: true},
		{name: "in progress fails", from: BatchStatusInProgress, to: BatchStatusFailed, want: true},
		{name: "paused fails", from: BatchStatusPaused, to: BatchStatusFailed, want: true},
		{name: "scheduled cannot complete", from: BatchStatusScheduled, to: BatchStatusCompleted, want: false},
		{name: "scheduled cannot fail", from: BatchStatusScheduled, to: BatchStatusFailed, want: false},
		{name: "scheduled cannot pause", from: BatchStatusScheduled, to: BatchStatusPaused, want: false},
		{name: "paused cannot complete", from: BatchStatusPaused, to: BatchStatusCompleted, want: false},
		{name: "completed is terminal", from: BatchStatusCompleted, to: BatchStatusInProgress, want: false},
		{name: "failed is terminal", from: BatchStatusFailed, to: BatchStatusInProgress, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseBatchStatusFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseBatchStatusFromString(" in_progress ")
	if err != nil {
		t.Fatalf("ParseBatchStatusFromString() unexpected error = %v", err)
	}
	if got != BatchStatusInProgress {
		t.Fatalf("ParseBatchStatusFromString() = %s, want %s", got, BatchStatusInProgress)
	}

	_, err = ParseBatchStatusFromString("melting")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseBatchStatusFromString() error = %v, want ErrValidation", err)
	}
}

func TestBatchValidate(t *testing.T) {
	t.Parallel()

	valid := Batch{
		ProductName: "widget",
		TargetQty:   10,
		MachineID:   "m1",
		OperatorID:  "op1",
		Materials: []BatchMaterial{
			{MaterialID: "mat1", Quantity: 5},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(b *Batch)
	}{
		{name: "missing product name", mutate: func(b *Batch) { b.ProductName = "  " }},
		{name: "non positive target", mutate: func(b *Batch) { b.TargetQty = 0 }},
		{name: "missing machine", mutate: func(b *Batch) { b.MachineID = "" }},
		{name: "missing operator", mutate: func(b *Batch) { b.OperatorID = "" }},
		{name: "zero quantity reservation", mutate: func(b *Batch) { b.Materials[0].Quantity = 0 }},
		{name: "duplicate material", mutate: func(b *Batch) {
			b.Materials = append(b.Materials, BatchMaterial{MaterialID: "mat1", Quantity: 1})
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := valid
			b.Materials = append([]BatchMaterial(nil), valid.Materials...)
			tt.mutate(&b)
			if err := b.Validate(); !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}
