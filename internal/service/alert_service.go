package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/repository"
	"go.uber.org/zap"
)

// AlertService owns the alert surface: listing unresolved alerts and
// resolving them with their machine side effects.
type AlertService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewAlertService(store repository.Store, logger *zap.Logger) (*AlertService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AlertService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *AlertService) Active(ctx context.Context) ([]domain.Alert, error) {
	return s.store.Alerts().ListUnresolved(ctx)
}

// Resolve marks an alert resolved and applies the registry side effects:
// a MAINTENANCE alert stamps today as the last maintenance date and
// recomputes the due date; a MACHINE_FAILURE alert returns the machine to
// AVAILABLE.
func (s *AlertService) Resolve(ctx context.Context, id string) (*domain.Alert, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: alert id is required", domain.ErrValidation)
	}

	var result *domain.Alert
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		alert, err := tx.Alerts().GetByID(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if alert.Resolved {
			return fmt.Errorf("%w: alert %s is already resolved", domain.ErrConflict, alert.ID)
		}

		machine, err := tx.Machines().GetByIDForUpdate(ctx, alert.MachineID)
		if err != nil {
			return err
		}

		switch alert.Type {
		case domain.AlertTypeMaintenance:
			today := truncateToDate(s.now())
			machine.LastMaintenanceDate = &today
			machine.RecomputeMaintenanceDue()
			if err := tx.Machines().Update(ctx, machine); err != nil {
				return err
			}
		case domain.AlertTypeMachineFailure:
			if err := tx.Machines().UpdateStatus(ctx, machine.ID, domain.MachineStatusAvailable); err != nil {
				return err
			}
		}

		if err := tx.Alerts().MarkResolved(ctx, alert.ID); err != nil {
			return err
		}

		alert.Resolved = true
		result = alert
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("alert resolved",
		zap.String("alertId", result.ID),
		zap.String("type", result.Type.String()),
		zap.String("machineId", result.MachineID),
	)
	return result, nil
}

func (s *AlertService) ClearAll(ctx context.Context) error {
	return s.store.Atomically(ctx, func(tx repository.Store) error {
		return tx.Alerts().DeleteAll(ctx)
	})
}

// raiseAlert persists an alert row in the caller's transaction. With
// dedupe set, an existing unresolved alert of the same type for the same
// machine suppresses the new one.
func raiseAlert(ctx context.Context, alerts repository.AlertRepository, now time.Time, alert domain.Alert, dedupe bool) (bool, error) {
	if dedupe {
		exists, err := alerts.ExistsUnresolved(ctx, alert.Type, alert.MachineID)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}

	alert.ID = uuid.NewString()
	alert.Resolved = false
	alert.CreatedAt = now
	if err := alerts.Create(ctx, &alert); err != nil {
		return false, err
	}
	return true, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
