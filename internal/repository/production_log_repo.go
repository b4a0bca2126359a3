package repository

import (
	"context"
	"time"

	"github.com/prodmon/factory-engine/internal/domain"
	"gorm.io/gorm"
)

// ProductionLogRepository appends finished-batch snapshots. Rows are never
// updated or deleted.
type ProductionLogRepository interface {
	Create(ctx context.Context, l *domain.ProductionLog) error
	ListByStatus(ctx context.Context, status domain.ProductionStatus, from, to *time.Time) ([]domain.ProductionLog, error)
}

type GormProductionLogRepo struct {
	db *gorm.DB
}

func NewGormProductionLogRepo(db *gorm.DB) *GormProductionLogRepo {
	return &GormProductionLogRepo{db: db}
}

func (r *GormProductionLogRepo) Create(ctx context.Context, l *domain.ProductionLog) error {
	model := productionLogModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if l != nil {
		*l = *productionLogModelToDomain(model)
	}
	return nil
}

func (r *GormProductionLogRepo) ListByStatus(ctx context.Context, status domain.ProductionStatus, from, to *time.Time) ([]domain.ProductionLog, error) {
	query := r.db.WithContext(ctx).Where("status = ?", status)
	if from != nil {
		query = query.Where("start_time >= ?", *from)
	}
	if to != nil {
		query = query.Where("start_time <= ?", *to)
	}

	var models []ProductionLogModel
	if err := query.Order("start_time DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	logs := make([]domain.ProductionLog, 0, len(models))
	for i := range models {
		logs = append(logs, *productionLogModelToDomain(&models[i]))
	}
	return logs, nil
}
