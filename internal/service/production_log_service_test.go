package service

import (
	"context"
	"testing"
	"time"

	"github.com/prodmon/factory-engine/internal/domain"
)

func TestProductionLogListFiltersByStatusAndWindow(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.logs = []domain.ProductionLog{
		{ID: "l1", Status: domain.ProductionStatusCompleted, StartTime: time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)},
		{ID: "l2", Status: domain.ProductionStatusCompleted, StartTime: time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)},
		{ID: "l3", Status: domain.ProductionStatusFailed, StartTime: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)},
	}

	svc, err := NewProductionLogService(store)
	if err != nil {
		t.Fatalf("NewProductionLogService() error = %v", err)
	}

	from := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	completed, err := svc.ListCompleted(context.Background(), &from, nil)
	if err != nil {
		t.Fatalf("ListCompleted() error = %v", err)
	}
	if len(completed) != 1 || completed[0].ID != "l2" {
		t.Fatalf("completed = %v, want only l2", completed)
	}

	failed, err := svc.ListFailed(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("ListFailed() error = %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "l3" {
		t.Fatalf("failed = %v, want only l3", failed)
	}
}
