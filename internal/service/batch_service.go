package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/observability"
	"github.com/prodmon/factory-engine/internal/repository"
	"go.uber.org/zap"
)

// MachineLocker serializes batch creation per machine across processes.
// Lock returns a release func, or ErrContention when the bounded wait
// expires.
type MachineLocker interface {
	Lock(ctx context.Context, machineID string) (func(), error)
}

// BatchService is the batch lifecycle engine. Every operation runs as one
// transaction: batch status writes, material deltas, machine status writes
// and alert/log rows commit together or not at all. Operations return the
// domain events the caller forwards to the external sinks after commit.
type BatchService struct {
	store   repository.Store
	locks   MachineLocker
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewBatchService(store repository.Store, locks MachineLocker, logger *zap.Logger) (*BatchService, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchService{
		store:  store,
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *BatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// observe records the outcome of one lifecycle operation.
func (s *BatchService) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}

	s.metrics.ObserveLifecycleOp(op, s.now().Sub(start))
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		s.metrics.IncStockRejection(op)
	case errors.Is(err, domain.ErrContention):
		s.metrics.IncLockContention()
	}
}

func (s *BatchService) recordTransition(to domain.BatchStatus) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncBatchTransition(to.String())
}

// Create schedules a new batch. The machine must be AVAILABLE with no
// active batch, and every requested material must cover its quantity;
// stock is reserved here, not at start. Any failed check aborts the whole
// transaction so a partial reservation is never left behind.
func (s *BatchService) Create(ctx context.Context, batch *domain.Batch) (*domain.Batch, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := prepareBatchForCreate(batch); err != nil {
		return nil, err
	}

	start := s.now()

	if s.locks != nil {
		unlock, err := s.locks.Lock(ctx, batch.MachineID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		machine, err := tx.Machines().GetByIDForUpdate(ctx, batch.MachineID)
		if err != nil {
			return err
		}
		if machine.Status != domain.MachineStatusAvailable {
			return fmt.Errorf("%w: machine %q is %s", domain.ErrResourceUnavailable, machine.Name, machine.Status)
		}

		// Status alone does not prove the machine is free; a stale batch
		// reference may still hold it.
		active, err := tx.Batches().CountActiveOnMachine(ctx, machine.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: machine %q already has an active batch", domain.ErrResourceUnavailable, machine.Name)
		}

		if err := reserveAll(ctx, tx.Materials(), batch.Materials); err != nil {
			return err
		}

		return tx.Batches().Create(ctx, batch)
	})
	s.observe("create", start, err)
	if err != nil {
		return nil, err
	}

	s.recordTransition(domain.BatchStatusScheduled)
	s.logger.Info("batch scheduled",
		zap.String("batchId", batch.ID),
		zap.String("machineId", batch.MachineID),
		zap.Int("materials", len(batch.Materials)),
	)
	return batch, nil
}

// Update edits a SCHEDULED batch. The existing reservations are released
// and the new list reserved as one staged transaction; if re-reserving
// fails the rollback restores the prior reservation set untouched.
func (s *BatchService) Update(ctx context.Context, id string, updated *domain.Batch) (*domain.Batch, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: batch is required", domain.ErrValidation)
	}

	start := s.now()

	var result *domain.Batch
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		existing, err := tx.Batches().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if existing.Status != domain.BatchStatusScheduled {
			return fmt.Errorf("%w: only SCHEDULED batches can be edited, batch %s is %s",
				domain.ErrInvalidState, existing.ID, existing.Status)
		}

		staged := *existing
		staged.ProductName = strings.TrimSpace(updated.ProductName)
		staged.TargetQty = updated.TargetQty
		staged.EstimatedStartTime = updated.EstimatedStartTime
		staged.EstimatedEndTime = updated.EstimatedEndTime
		staged.Materials = newReservations(existing.ID, updated.Materials)
		if err := staged.Validate(); err != nil {
			return err
		}

		for _, bm := range existing.Materials {
			if err := tx.Materials().Release(ctx, bm.MaterialID, bm.Quantity); err != nil {
				return err
			}
		}
		if err := reserveAll(ctx, tx.Materials(), staged.Materials); err != nil {
			return err
		}

		if err := tx.Batches().Update(ctx, &staged); err != nil {
			return err
		}
		if err := tx.Batches().ReplaceMaterials(ctx, staged.ID, staged.Materials); err != nil {
			return err
		}

		result = &staged
		return nil
	})
	s.observe("update", start, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch updated", zap.String("batchId", result.ID))
	return result, nil
}

// Start moves a SCHEDULED or PAUSED batch to IN_PROGRESS and marks the
// machine RUNNING. The actual start time is recorded once; resuming a
// paused batch keeps the original instant.
func (s *BatchService) Start(ctx context.Context, id string) error {
	start := s.now()
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		batch, err := tx.Batches().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !batch.Status.CanTransitionTo(domain.BatchStatusInProgress) {
			return fmt.Errorf("%w: cannot start batch in %s", domain.ErrInvalidState, batch.Status)
		}

		if batch.ActualStartTime == nil {
			started := s.now()
			batch.ActualStartTime = &started
		}
		batch.Status = domain.BatchStatusInProgress

		if err := tx.Batches().Update(ctx, batch); err != nil {
			return err
		}
		_, err = setMachineStatus(ctx, tx, batch.MachineID, domain.MachineStatusRunning, s.now())
		return err
	})
	s.observe("start", start, err)
	if err == nil {
		s.recordTransition(domain.BatchStatusInProgress)
	}
	return err
}

// Pause suspends an IN_PROGRESS batch and marks the machine PAUSED.
func (s *BatchService) Pause(ctx context.Context, id string) error {
	start := s.now()
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		batch, err := tx.Batches().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !batch.Status.CanTransitionTo(domain.BatchStatusPaused) {
			return fmt.Errorf("%w: cannot pause batch in %s", domain.ErrInvalidState, batch.Status)
		}

		batch.Status = domain.BatchStatusPaused
		if err := tx.Batches().Update(ctx, batch); err != nil {
			return err
		}
		_, err = setMachineStatus(ctx, tx, batch.MachineID, domain.MachineStatusPaused, s.now())
		return err
	})
	s.observe("pause", start, err)
	if err == nil {
		s.recordTransition(domain.BatchStatusPaused)
	}
	return err
}

// Complete finishes an IN_PROGRESS batch. Reserved materials are treated
// as consumed; no stock is restored. A production log is written and the
// machine returns to AVAILABLE.
func (s *BatchService) Complete(ctx context.Context, id string) ([]domain.Event, error) {
	start := s.now()

	var events []domain.Event
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		batch, err := tx.Batches().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !batch.Status.CanTransitionTo(domain.BatchStatusCompleted) {
			return fmt.Errorf("%w: cannot complete batch in %s", domain.ErrInvalidState, batch.Status)
		}

		ended := s.now()
		batch.ActualEndTime = &ended
		batch.Status = domain.BatchStatusCompleted
		if err := tx.Batches().Update(ctx, batch); err != nil {
			return err
		}

		finished, err := recordProduction(ctx, tx, batch)
		if err != nil {
			return err
		}
		events = append(events, finished...)

		machineEvents, err := setMachineStatus(ctx, tx, batch.MachineID, domain.MachineStatusAvailable, s.now())
		if err != nil {
			return err
		}
		events = append(events, machineEvents...)
		return nil
	})
	s.observe("complete", start, err)
	if err != nil {
		return nil, err
	}

	s.recordTransition(domain.BatchStatusCompleted)
	s.logger.Info("batch completed", zap.String("batchId", id))
	return events, nil
}

// Fail aborts an IN_PROGRESS or PAUSED batch: every reservation is
// released back into the ledger, a production log is written if the batch
// had started, and the machine goes to ERROR (raising a failure alert).
func (s *BatchService) Fail(ctx context.Context, id string, reason string) ([]domain.Event, error) {
	start := s.now()

	var events []domain.Event
	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		batch, err := tx.Batches().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !batch.Status.CanTransitionTo(domain.BatchStatusFailed) {
			return fmt.Errorf("%w: cannot fail batch in %s", domain.ErrInvalidState, batch.Status)
		}

		for _, bm := range batch.Materials {
			if err := tx.Materials().Release(ctx, bm.MaterialID, bm.Quantity); err != nil {
				return err
			}
		}

		ended := s.now()
		batch.ActualEndTime = &ended
		batch.Status = domain.BatchStatusFailed
		batch.FailureReason = normalizeOptionalString(&reason)
		if err := tx.Batches().Update(ctx, batch); err != nil {
			return err
		}

		finished, err := recordProduction(ctx, tx, batch)
		if err != nil {
			return err
		}
		events = append(events, finished...)

		machineEvents, err := setMachineStatus(ctx, tx, batch.MachineID, domain.MachineStatusError, s.now())
		if err != nil {
			return err
		}
		events = append(events, machineEvents...)
		return nil
	})
	s.observe("fail", start, err)
	if err != nil {
		return nil, err
	}

	s.recordTransition(domain.BatchStatusFailed)
	s.logger.Warn("batch failed",
		zap.String("batchId", id),
		zap.String("reason", reason),
	)
	return events, nil
}

func (s *BatchService) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	return s.store.Batches().GetByID(ctx, strings.TrimSpace(id))
}

func (s *BatchService) List(ctx context.Context) ([]domain.Batch, error) {
	return s.store.Batches().List(ctx)
}

func prepareBatchForCreate(b *domain.Batch) error {
	if b == nil {
		return fmt.Errorf("%w: batch is required", domain.ErrValidation)
	}

	b.ProductName = strings.TrimSpace(b.ProductName)
	b.MachineID = strings.TrimSpace(b.MachineID)
	b.OperatorID = strings.TrimSpace(b.OperatorID)

	b.ID = strings.TrimSpace(b.ID)
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	b.Status = domain.BatchStatusScheduled
	b.ActualStartTime = nil
	b.ActualEndTime = nil
	b.FailureReason = nil
	b.Materials = newReservations(b.ID, b.Materials)

	return b.Validate()
}

func newReservations(batchID string, materials []domain.BatchMaterial) []domain.BatchMaterial {
	reservations := make([]domain.BatchMaterial, 0, len(materials))
	for _, bm := range materials {
		reservations = append(reservations, domain.BatchMaterial{
			ID:         uuid.NewString(),
			BatchID:    batchID,
			MaterialID: strings.TrimSpace(bm.MaterialID),
			Quantity:   bm.Quantity,
		})
	}
	return reservations
}

// reserveAll decrements stock for every reservation, visiting materials in
// id order so concurrent transactions lock rows in the same sequence.
func reserveAll(ctx context.Context, materials repository.MaterialRepository, reservations []domain.BatchMaterial) error {
	ordered := make([]domain.BatchMaterial, len(reservations))
	copy(ordered, reservations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MaterialID < ordered[j].MaterialID })

	for _, bm := range ordered {
		if err := materials.Reserve(ctx, bm.MaterialID, bm.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// recordProduction writes the immutable snapshot for a terminal batch. A
// batch that never started produces no log.
func recordProduction(ctx context.Context, tx repository.Store, batch *domain.Batch) ([]domain.Event, error) {
	snapshot, ok := domain.ProductionSnapshot(batch)
	if !ok {
		return nil, nil
	}

	snapshot.ID = uuid.NewString()
	if err := tx.ProductionLogs().Create(ctx, snapshot); err != nil {
		return nil, err
	}
	return []domain.Event{domain.BatchFinished{Snapshot: *snapshot}}, nil
}

func normalizeOptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
