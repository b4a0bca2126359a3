package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/repository"
	"go.uber.org/zap"
)

// MaterialService is the material ledger surface: stock intake by identity
// and standalone reserve/release for callers outside the batch engine.
type MaterialService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewMaterialService(store repository.Store, logger *zap.Logger) (*MaterialService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MaterialService{store: store, logger: logger}, nil
}

func (s *MaterialService) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: material id is required", domain.ErrValidation)
	}
	return s.store.Materials().GetByID(ctx, strings.TrimSpace(id))
}

func (s *MaterialService) List(ctx context.Context) ([]domain.Material, error) {
	return s.store.Materials().List(ctx)
}

// UpsertByIdentity finds the material by (name, grade, location),
// case-insensitively, and adds qty to its stock; an absent material is
// created with qty as its initial stock. Used by stock intake.
func (s *MaterialService) UpsertByIdentity(ctx context.Context, name string, grade int, location string, qty int) (*domain.Material, error) {
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)
	if qty <= 0 {
		return nil, fmt.Errorf("%w: intake quantity must be positive", domain.ErrValidation)
	}

	candidate := &domain.Material{
		ID:       uuid.NewString(),
		Name:     name,
		Grade:    grade,
		Location: location,
		Stock:    qty,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	var result *domain.Material
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		existing, err := tx.Materials().FindByIdentity(ctx, name, grade, location)
		if err == nil {
			if err := tx.Materials().Release(ctx, existing.ID, qty); err != nil {
				return err
			}
			result, err = tx.Materials().GetByID(ctx, existing.ID)
			return err
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if err := tx.Materials().Create(ctx, candidate); err != nil {
			return err
		}
		result = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("material stock received",
		zap.String("materialId", result.ID),
		zap.String("name", result.Name),
		zap.Int("qty", qty),
		zap.Int("stock", result.Stock),
	)
	return result, nil
}

// Reserve atomically checks and decrements stock.
func (s *MaterialService) Reserve(ctx context.Context, id string, qty int) error {
	return s.store.Atomically(ctx, func(tx repository.Store) error {
		return tx.Materials().Reserve(ctx, id, qty)
	})
}

// Release atomically adds qty back to stock.
func (s *MaterialService) Release(ctx context.Context, id string, qty int) error {
	return s.store.Atomically(ctx, func(tx repository.Store) error {
		return tx.Materials().Release(ctx, id, qty)
	})
}
