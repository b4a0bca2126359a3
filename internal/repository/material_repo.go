package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/prodmon/factory-engine/internal/domain"
	"gorm.io/gorm"
)

// MaterialRepository is the material ledger port. Reserve and Release are
// the only stock mutations; both are single atomic statements so concurrent
// reservations against the same row can never both pass a stale check.
type MaterialRepository interface {
	Create(ctx context.Context, m *domain.Material) error
	GetByID(ctx context.Context, id string) (*domain.Material, error)
	FindByIdentity(ctx context.Context, name string, grade int, location string) (*domain.Material, error)
	List(ctx context.Context) ([]domain.Material, error)
	Reserve(ctx context.Context, id string, qty int) error
	Release(ctx context.Context, id string, qty int) error
}

type GormMaterialRepo struct {
	db *gorm.DB
}

func NewGormMaterialRepo(db *gorm.DB) *GormMaterialRepo {
	return &GormMaterialRepo{db: db}
}

func (r *GormMaterialRepo) Create(ctx context.Context, m *domain.Material) error {
	model := materialModelFromDomain(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if m != nil {
		*m = *materialModelToDomain(model)
	}
	return nil
}

func (r *GormMaterialRepo) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	var model MaterialModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: material %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return materialModelToDomain(&model), nil
}

func (r *GormMaterialRepo) FindByIdentity(ctx context.Context, name string, grade int, location string) (*domain.Material, error) {
	var model MaterialModel
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) AND grade = ? AND LOWER(location) = LOWER(?)", name, grade, location).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: material %s/%d/%s", domain.ErrNotFound, name, grade, location)
	}
	if err != nil {
		return nil, err
	}
	return materialModelToDomain(&model), nil
}

func (r *GormMaterialRepo) List(ctx context.Context) ([]domain.Material, error) {
	var models []MaterialModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	materials := make([]domain.Material, 0, len(models))
	for i := range models {
		materials = append(materials, *materialModelToDomain(&models[i]))
	}
	return materials, nil
}

// Reserve decrements stock by qty iff stock >= qty, as one conditional
// UPDATE. Zero rows affected means either a missing row or not enough
// stock; the follow-up read disambiguates and names the material.
func (r *GormMaterialRepo) Reserve(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: reserve quantity must be positive", domain.ErrValidation)
	}

	result := r.db.WithContext(ctx).
		Model(&MaterialModel{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	material, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: material %q has %d in stock, requested %d",
		domain.ErrInsufficientStock, material.Name, material.Stock, qty)
}

// Release adds qty back to stock. No upper bound is enforced; received
// stock is validated upstream.
func (r *GormMaterialRepo) Release(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: release quantity must be positive", domain.ErrValidation)
	}

	result := r.db.WithContext(ctx).
		Model(&MaterialModel{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: material %s", domain.ErrNotFound, id)
	}
	return nil
}
