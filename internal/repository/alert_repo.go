package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/prodmon/factory-engine/internal/domain"
	"gorm.io/gorm"
)

// AlertRepository owns alert rows. Dedup of unresolved MAINTENANCE alerts
// is checked here and additionally enforced by a partial unique index.
type AlertRepository interface {
	Create(ctx context.Context, a *domain.Alert) error
	GetByID(ctx context.Context, id string) (*domain.Alert, error)
	ListUnresolved(ctx context.Context) ([]domain.Alert, error)
	ExistsUnresolved(ctx context.Context, alertType domain.AlertType, machineID string) (bool, error)
	MarkResolved(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type GormAlertRepo struct {
	db *gorm.DB
}

func NewGormAlertRepo(db *gorm.DB) *GormAlertRepo {
	return &GormAlertRepo{db: db}
}

func (r *GormAlertRepo) Create(ctx context.Context, a *domain.Alert) error {
	model := alertModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if a != nil {
		*a = *alertModelToDomain(model)
	}
	return nil
}

func (r *GormAlertRepo) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	var model AlertModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: alert %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return alertModelToDomain(&model), nil
}

func (r *GormAlertRepo) ListUnresolved(ctx context.Context) ([]domain.Alert, error) {
	var models []AlertModel
	err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	alerts := make([]domain.Alert, 0, len(models))
	for i := range models {
		alerts = append(alerts, *alertModelToDomain(&models[i]))
	}
	return alerts, nil
}

func (r *GormAlertRepo) ExistsUnresolved(ctx context.Context, alertType domain.AlertType, machineID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&AlertModel{}).
		Where("type = ? AND machine_id = ? AND resolved = ?", alertType, machineID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormAlertRepo) MarkResolved(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&AlertModel{}).
		Where("id = ?", id).
		Update("resolved", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: alert %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *GormAlertRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&AlertModel{}).Error
}
