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

// MachineService is the machine registry: it owns machine CRUD, status
// transitions and the maintenance schedule. Status and maintenance changes
// may raise alerts; the matching events are returned for the caller to
// forward to the sinks.
type MachineService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewMachineService(store repository.Store, logger *zap.Logger) (*MachineService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MachineService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *MachineService) Create(ctx context.Context, machine *domain.Machine) (*domain.Machine, []domain.Event, error) {
	if machine == nil {
		return nil, nil, fmt.Errorf("%w: machine is required", domain.ErrValidation)
	}

	machine.Name = strings.TrimSpace(machine.Name)
	machine.ID = strings.TrimSpace(machine.ID)
	if machine.ID == "" {
		machine.ID = uuid.NewString()
	}
	machine.Status = domain.MachineStatusAvailable
	machine.RecomputeMaintenanceDue()
	if err := machine.Validate(); err != nil {
		return nil, nil, err
	}

	var events []domain.Event
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		if err := tx.Machines().Create(ctx, machine); err != nil {
			return err
		}

		maintenance, err := checkMaintenance(ctx, tx, machine, s.now())
		if err != nil {
			return err
		}
		events = maintenance
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("machine registered",
		zap.String("machineId", machine.ID),
		zap.String("name", machine.Name),
	)
	return machine, events, nil
}

// Update edits machine details and recomputes the maintenance due date
// whenever the last maintenance date changes.
func (s *MachineService) Update(ctx context.Context, id string, updated *domain.Machine) (*domain.Machine, []domain.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: machine id is required", domain.ErrValidation)
	}
	if updated == nil {
		return nil, nil, fmt.Errorf("%w: machine is required", domain.ErrValidation)
	}

	var (
		result *domain.Machine
		events []domain.Event
	)
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		existing, err := tx.Machines().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		existing.Name = strings.TrimSpace(updated.Name)
		existing.ManufactureDate = updated.ManufactureDate
		existing.LastMaintenanceDate = updated.LastMaintenanceDate
		existing.RecomputeMaintenanceDue()
		if err := existing.Validate(); err != nil {
			return err
		}

		if err := tx.Machines().Update(ctx, existing); err != nil {
			return err
		}

		maintenance, err := checkMaintenance(ctx, tx, existing, s.now())
		if err != nil {
			return err
		}

		result = existing
		events = maintenance
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return result, events, nil
}

// UpdateStatus writes the machine status unconditionally. Entering ERROR
// always raises a MACHINE_FAILURE alert; failure events are never
// deduplicated.
func (s *MachineService) UpdateStatus(ctx context.Context, id string, status domain.MachineStatus) ([]domain.Event, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid machine status %q", domain.ErrValidation, status)
	}

	var events []domain.Event
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		machineEvents, err := setMachineStatus(ctx, tx, id, status, s.now())
		if err != nil {
			return err
		}
		events = machineEvents
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *MachineService) MarkAvailable(ctx context.Context, id string) ([]domain.Event, error) {
	return s.UpdateStatus(ctx, id, domain.MachineStatusAvailable)
}

func (s *MachineService) MarkRunning(ctx context.Context, id string) ([]domain.Event, error) {
	return s.UpdateStatus(ctx, id, domain.MachineStatusRunning)
}

func (s *MachineService) MarkPaused(ctx context.Context, id string) ([]domain.Event, error) {
	return s.UpdateStatus(ctx, id, domain.MachineStatusPaused)
}

func (s *MachineService) MarkError(ctx context.Context, id string) ([]domain.Event, error) {
	return s.UpdateStatus(ctx, id, domain.MachineStatusError)
}

func (s *MachineService) GetByID(ctx context.Context, id string) (*domain.Machine, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: machine id is required", domain.ErrValidation)
	}
	return s.store.Machines().GetByID(ctx, strings.TrimSpace(id))
}

func (s *MachineService) List(ctx context.Context) ([]domain.Machine, error) {
	return s.store.Machines().List(ctx)
}

// Delete removes a machine. A machine with an active batch cannot be
// deleted.
func (s *MachineService) Delete(ctx context.Context, id string) error {
	return s.store.Atomically(ctx, func(tx repository.Store) error {
		active, err := tx.Batches().CountActiveOnMachine(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: machine %s has an active batch", domain.ErrConflict, id)
		}
		return tx.Machines().Delete(ctx, id)
	})
}

// setMachineStatus writes the status and raises the unconditional failure
// alert when a machine enters ERROR. Used in-transaction by both the
// machine registry and the batch lifecycle engine.
func setMachineStatus(ctx context.Context, tx repository.Store, machineID string, status domain.MachineStatus, now time.Time) ([]domain.Event, error) {
	machine, err := tx.Machines().GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}

	if err := tx.Machines().UpdateStatus(ctx, machineID, status); err != nil {
		return nil, err
	}

	if status != domain.MachineStatusError {
		return nil, nil
	}

	alert := domain.Alert{
		Type:        domain.AlertTypeMachineFailure,
		Severity:    domain.AlertSeverityHigh,
		MachineID:   machine.ID,
		MachineName: machine.Name,
		Message:     "Machine failed",
	}
	if _, err := raiseAlert(ctx, tx.Alerts(), now, alert, false); err != nil {
		return nil, err
	}

	return []domain.Event{domain.MachineFailed{
		MachineID:   machine.ID,
		MachineName: machine.Name,
	}}, nil
}

// checkMaintenance raises a deduplicated MAINTENANCE alert when the due
// date is today or in the past.
func checkMaintenance(ctx context.Context, tx repository.Store, machine *domain.Machine, now time.Time) ([]domain.Event, error) {
	if !machine.MaintenanceDue(now) {
		return nil, nil
	}

	alert := domain.Alert{
		Type:        domain.AlertTypeMaintenance,
		Severity:    domain.AlertSeverityMedium,
		MachineID:   machine.ID,
		MachineName: machine.Name,
		Message:     "Maintenance due",
	}
	raised, err := raiseAlert(ctx, tx.Alerts(), now, alert, true)
	if err != nil {
		return nil, err
	}
	if !raised {
		return nil, nil
	}

	return []domain.Event{domain.MaintenanceDue{
		MachineID:   machine.ID,
		MachineName: machine.Name,
		DueDate:     *machine.NextMaintenanceDue,
	}}, nil
}
