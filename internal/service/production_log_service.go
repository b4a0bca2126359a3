package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/repository"
)

// ProductionLogService reads the reporting sink. Log rows are written by
// the batch lifecycle engine inside its own transactions; this service
// only queries them.
type ProductionLogService struct {
	store repository.Store
}

func NewProductionLogService(store repository.Store) (*ProductionLogService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &ProductionLogService{store: store}, nil
}

func (s *ProductionLogService) ListCompleted(ctx context.Context, from, to *time.Time) ([]domain.ProductionLog, error) {
	return s.store.ProductionLogs().ListByStatus(ctx, domain.ProductionStatusCompleted, from, to)
}

func (s *ProductionLogService) ListFailed(ctx context.Context, from, to *time.Time) ([]domain.ProductionLog, error) {
	return s.store.ProductionLogs().ListByStatus(ctx, domain.ProductionStatusFailed, from, to)
}
