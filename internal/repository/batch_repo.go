package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/prodmon/factory-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchRepository owns batch rows and their material reservations.
type BatchRepository interface {
	Create(ctx context.Context, b *domain.Batch) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Batch, error)
	List(ctx context.Context) ([]domain.Batch, error)
	Update(ctx context.Context, b *domain.Batch) error
	ReplaceMaterials(ctx context.Context, batchID string, materials []domain.BatchMaterial) error
	CountActiveOnMachine(ctx context.Context, machineID string) (int64, error)
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

func (r *GormBatchRepo) Create(ctx context.Context, b *domain.Batch) error {
	model := batchModelFromDomain(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if b != nil {
		*b = *batchModelToDomain(model)
	}
	return nil
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	return r.get(ctx, id, false)
}

func (r *GormBatchRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Batch, error) {
	return r.get(ctx, id, true)
}

func (r *GormBatchRepo) get(ctx context.Context, id string, forUpdate bool) (*domain.Batch, error) {
	query := r.db.WithContext(ctx).Preload("Materials")
	if forUpdate {
		// Locks the batches row only; Preload queries stay unlocked.
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "batches"}})
	}

	var model BatchModel
	err := query.First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: batch %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return batchModelToDomain(&model), nil
}

func (r *GormBatchRepo) List(ctx context.Context) ([]domain.Batch, error) {
	var models []BatchModel
	err := r.db.WithContext(ctx).
		Preload("Materials").
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	batches := make([]domain.Batch, 0, len(models))
	for i := range models {
		batches = append(batches, *batchModelToDomain(&models[i]))
	}
	return batches, nil
}

func (r *GormBatchRepo) Update(ctx context.Context, b *domain.Batch) error {
	model := batchModelFromDomain(b)
	result := r.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"product_name":         model.ProductName,
			"target_qty":           model.TargetQty,
			"status":               model.Status,
			"estimated_start_time": model.EstimatedStartTime,
			"estimated_end_time":   model.EstimatedEndTime,
			"actual_start_time":    model.ActualStartTime,
			"actual_end_time":      model.ActualEndTime,
			"failure_reason":       model.FailureReason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: batch %s", domain.ErrNotFound, b.ID)
	}
	return nil
}

// ReplaceMaterials swaps the reservation set of a batch wholesale. Callers
// must run this inside a transaction together with the matching ledger
// release/reserve calls.
func (r *GormBatchRepo) ReplaceMaterials(ctx context.Context, batchID string, materials []domain.BatchMaterial) error {
	if err := r.db.WithContext(ctx).
		Delete(&BatchMaterialModel{}, "batch_id = ?", batchID).Error; err != nil {
		return err
	}

	if len(materials) == 0 {
		return nil
	}

	models := make([]BatchMaterialModel, 0, len(materials))
	for _, bm := range materials {
		models = append(models, BatchMaterialModel{
			ID:         bm.ID,
			BatchID:    batchID,
			MaterialID: bm.MaterialID,
			Quantity:   bm.Quantity,
		})
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

// CountActiveOnMachine counts batches holding the machine. Combined with a
// FOR UPDATE lock on the machine row it enforces the one-active-batch
// invariant under concurrent Create calls.
func (r *GormBatchRepo) CountActiveOnMachine(ctx context.Context, machineID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("machine_id = ? AND status IN ?", machineID,
			[]domain.BatchStatus{domain.BatchStatusInProgress, domain.BatchStatusPaused}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
