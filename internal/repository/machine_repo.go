package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prodmon/factory-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MachineRepository owns machine rows. GetByIDForUpdate takes a row lock so
// the free-machine check and the batch insert that follows it are
// serializable across concurrent creators.
type MachineRepository interface {
	Create(ctx context.Context, m *domain.Machine) error
	GetByID(ctx context.Context, id string) (*domain.Machine, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Machine, error)
	List(ctx context.Context) ([]domain.Machine, error)
	Update(ctx context.Context, m *domain.Machine) error
	UpdateStatus(ctx context.Context, id string, status domain.MachineStatus) error
	Delete(ctx context.Context, id string) error
}

type GormMachineRepo struct {
	db *gorm.DB
}

func NewGormMachineRepo(db *gorm.DB) *GormMachineRepo {
	return &GormMachineRepo{db: db}
}

func (r *GormMachineRepo) Create(ctx context.Context, m *domain.Machine) error {
	model := machineModelFromDomain(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: machine name %q already exists", domain.ErrConflict, m.Name)
		}
		return err
	}
	if m != nil {
		*m = *machineModelToDomain(model)
	}
	return nil
}

func (r *GormMachineRepo) GetByID(ctx context.Context, id string) (*domain.Machine, error) {
	return r.get(ctx, id, false)
}

func (r *GormMachineRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Machine, error) {
	return r.get(ctx, id, true)
}

func (r *GormMachineRepo) get(ctx context.Context, id string, forUpdate bool) (*domain.Machine, error) {
	query := r.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model MachineModel
	err := query.First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: machine %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return machineModelToDomain(&model), nil
}

func (r *GormMachineRepo) List(ctx context.Context) ([]domain.Machine, error) {
	var models []MachineModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	machines := make([]domain.Machine, 0, len(models))
	for i := range models {
		machines = append(machines, *machineModelToDomain(&models[i]))
	}
	return machines, nil
}

func (r *GormMachineRepo) Update(ctx context.Context, m *domain.Machine) error {
	model := machineModelFromDomain(m)
	result := r.db.WithContext(ctx).
		Model(&MachineModel{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"name":                  model.Name,
			"manufacture_date":      model.ManufactureDate,
			"last_maintenance_date": model.LastMaintenanceDate,
			"next_maintenance_due":  model.NextMaintenanceDue,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("%w: machine name %q already exists", domain.ErrConflict, m.Name)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: machine %s", domain.ErrNotFound, m.ID)
	}
	return nil
}

func (r *GormMachineRepo) UpdateStatus(ctx context.Context, id string, status domain.MachineStatus) error {
	result := r.db.WithContext(ctx).
		Model(&MachineModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: machine %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *GormMachineRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&MachineModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: machine %s", domain.ErrNotFound, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
