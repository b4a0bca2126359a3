package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/repository"
)

// memStore is an in-memory repository.Store. Atomically snapshots the
// whole state up front and restores it when the callback fails, so tests
// can assert that aborted operations leave nothing behind.
type memStore struct {
	machines  map[string]domain.Machine
	materials map[string]domain.Material
	batches   map[string]domain.Batch
	alerts    map[string]domain.Alert
	logs      []domain.ProductionLog

	inTx bool
}

func newMemStore() *memStore {
	return &memStore{
		machines:  make(map[string]domain.Machine),
		materials: make(map[string]domain.Material),
		batches:   make(map[string]domain.Batch),
		alerts:    make(map[string]domain.Alert),
	}
}

func (s *memStore) Batches() repository.BatchRepository      { return &memBatchRepo{s: s} }
func (s *memStore) Machines() repository.MachineRepository   { return &memMachineRepo{s: s} }
func (s *memStore) Materials() repository.MaterialRepository { return &memMaterialRepo{s: s} }
func (s *memStore) Alerts() repository.AlertRepository       { return &memAlertRepo{s: s} }
func (s *memStore) ProductionLogs() repository.ProductionLogRepository {
	return &memProductionLogRepo{s: s}
}

func (s *memStore) Atomically(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	snapshot := s.clone()
	s.inTx = true
	err := fn(s)
	s.inTx = false
	if err != nil {
		s.machines = snapshot.machines
		s.materials = snapshot.materials
		s.batches = snapshot.batches
		s.alerts = snapshot.alerts
		s.logs = snapshot.logs
		return err
	}
	return nil
}

func (s *memStore) clone() *memStore {
	cp := newMemStore()
	for id, m := range s.machines {
		cp.machines[id] = m
	}
	for id, m := range s.materials {
		cp.materials[id] = m
	}
	for id, b := range s.batches {
		b.Materials = append([]domain.BatchMaterial(nil), b.Materials...)
		cp.batches[id] = b
	}
	for id, a := range s.alerts {
		cp.alerts[id] = a
	}
	cp.logs = append([]domain.ProductionLog(nil), s.logs...)
	return cp
}

type memBatchRepo struct{ s *memStore }

func (r *memBatchRepo) Create(ctx context.Context, b *domain.Batch) error {
	stored := *b
	stored.Materials = append([]domain.BatchMaterial(nil), b.Materials...)
	r.s.batches[b.ID] = stored
	return nil
}

func (r *memBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	b, ok := r.s.batches[id]
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", domain.ErrNotFound, id)
	}
	cp := b
	cp.Materials = append([]domain.BatchMaterial(nil), b.Materials...)
	return &cp, nil
}

func (r *memBatchRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Batch, error) {
	return r.GetByID(ctx, id)
}

func (r *memBatchRepo) List(ctx context.Context) ([]domain.Batch, error) {
	batches := make([]domain.Batch, 0, len(r.s.batches))
	for _, b := range r.s.batches {
		batches = append(batches, b)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })
	return batches, nil
}

func (r *memBatchRepo) Update(ctx context.Context, b *domain.Batch) error {
	existing, ok := r.s.batches[b.ID]
	if !ok {
		return fmt.Errorf("%w: batch %s", domain.ErrNotFound, b.ID)
	}
	stored := *b
	stored.Materials = existing.Materials
	r.s.batches[b.ID] = stored
	return nil
}

func (r *memBatchRepo) ReplaceMaterials(ctx context.Context, batchID string, materials []domain.BatchMaterial) error {
	b, ok := r.s.batches[batchID]
	if !ok {
		return fmt.Errorf("%w: batch %s", domain.ErrNotFound, batchID)
	}
	b.Materials = append([]domain.BatchMaterial(nil), materials...)
	r.s.batches[batchID] = b
	return nil
}

func (r *memBatchRepo) CountActiveOnMachine(ctx context.Context, machineID string) (int64, error) {
	var count int64
	for _, b := range r.s.batches {
		if b.MachineID == machineID && b.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

type memMachineRepo struct{ s *memStore }

func (r *memMachineRepo) Create(ctx context.Context, m *domain.Machine) error {
	r.s.machines[m.ID] = *m
	return nil
}

func (r *memMachineRepo) GetByID(ctx context.Context, id string) (*domain.Machine, error) {
	m, ok := r.s.machines[id]
	if !ok {
		return nil, fmt.Errorf("%w: machine %s", domain.ErrNotFound, id)
	}
	cp := m
	return &cp, nil
}

func (r *memMachineRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Machine, error) {
	return r.GetByID(ctx, id)
}

func (r *memMachineRepo) List(ctx context.Context) ([]domain.Machine, error) {
	machines := make([]domain.Machine, 0, len(r.s.machines))
	for _, m := range r.s.machines {
		machines = append(machines, m)
	}
	sort.Slice(machines, func(i, j int) bool { return machines[i].ID < machines[j].ID })
	return machines, nil
}

func (r *memMachineRepo) Update(ctx context.Context, m *domain.Machine) error {
	if _, ok := r.s.machines[m.ID]; !ok {
		return fmt.Errorf("%w: machine %s", domain.ErrNotFound, m.ID)
	}
	r.s.machines[m.ID] = *m
	return nil
}

func (r *memMachineRepo) UpdateStatus(ctx context.Context, id string, status domain.MachineStatus) error {
	m, ok := r.s.machines[id]
	if !ok {
		return fmt.Errorf("%w: machine %s", domain.ErrNotFound, id)
	}
	m.Status = status
	r.s.machines[id] = m
	return nil
}

func (r *memMachineRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.machines[id]; !ok {
		return fmt.Errorf("%w: machine %s", domain.ErrNotFound, id)
	}
	delete(r.s.machines, id)
	return nil
}

type memMaterialRepo struct{ s *memStore }

func (r *memMaterialRepo) Create(ctx context.Context, m *domain.Material) error {
	r.s.materials[m.ID] = *m
	return nil
}

func (r *memMaterialRepo) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	m, ok := r.s.materials[id]
	if !ok {
		return nil, fmt.Errorf("%w: material %s", domain.ErrNotFound, id)
	}
	cp := m
	return &cp, nil
}

func (r *memMaterialRepo) FindByIdentity(ctx context.Context, name string, grade int, location string) (*domain.Material, error) {
	for _, m := range r.s.materials {
		if strings.EqualFold(m.Name, name) && m.Grade == grade && strings.EqualFold(m.Location, location) {
			cp := m
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: material (%s, %d, %s)", domain.ErrNotFound, name, grade, location)
}

func (r *memMaterialRepo) List(ctx context.Context) ([]domain.Material, error) {
	materials := make([]domain.Material, 0, len(r.s.materials))
	for _, m := range r.s.materials {
		materials = append(materials, m)
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].ID < materials[j].ID })
	return materials, nil
}

func (r *memMaterialRepo) Reserve(ctx context.Context, id string, qty int) error {
	m, ok := r.s.materials[id]
	if !ok {
		return fmt.Errorf("%w: material %s", domain.ErrNotFound, id)
	}
	if m.Stock < qty {
		return fmt.Errorf("%w: material %q has %d in stock, requested %d",
			domain.ErrInsufficientStock, m.Name, m.Stock, qty)
	}
	m.Stock -= qty
	r.s.materials[id] = m
	return nil
}

func (r *memMaterialRepo) Release(ctx context.Context, id string, qty int) error {
	m, ok := r.s.materials[id]
	if !ok {
		return fmt.Errorf("%w: material %s", domain.ErrNotFound, id)
	}
	m.Stock += qty
	r.s.materials[id] = m
	return nil
}

type memAlertRepo struct{ s *memStore }

func (r *memAlertRepo) Create(ctx context.Context, a *domain.Alert) error {
	r.s.alerts[a.ID] = *a
	return nil
}

func (r *memAlertRepo) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	a, ok := r.s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("%w: alert %s", domain.ErrNotFound, id)
	}
	cp := a
	return &cp, nil
}

func (r *memAlertRepo) ListUnresolved(ctx context.Context) ([]domain.Alert, error) {
	alerts := make([]domain.Alert, 0, len(r.s.alerts))
	for _, a := range r.s.alerts {
		if !a.Resolved {
			alerts = append(alerts, a)
		}
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

func (r *memAlertRepo) ExistsUnresolved(ctx context.Context, alertType domain.AlertType, machineID string) (bool, error) {
	for _, a := range r.s.alerts {
		if a.Type == alertType && a.MachineID == machineID && !a.Resolved {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAlertRepo) MarkResolved(ctx context.Context, id string) error {
	a, ok := r.s.alerts[id]
	if !ok {
		return fmt.Errorf("%w: alert %s", domain.ErrNotFound, id)
	}
	a.Resolved = true
	r.s.alerts[id] = a
	return nil
}

func (r *memAlertRepo) DeleteAll(ctx context.Context) error {
	r.s.alerts = make(map[string]domain.Alert)
	return nil
}

type memProductionLogRepo struct{ s *memStore }

func (r *memProductionLogRepo) Create(ctx context.Context, l *domain.ProductionLog) error {
	r.s.logs = append(r.s.logs, *l)
	return nil
}

func (r *memProductionLogRepo) ListByStatus(ctx context.Context, status domain.ProductionStatus, from, to *time.Time) ([]domain.ProductionLog, error) {
	logs := make([]domain.ProductionLog, 0, len(r.s.logs))
	for _, l := range r.s.logs {
		if l.Status != status {
			continue
		}
		if from != nil && l.StartTime.Before(*from) {
			continue
		}
		if to != nil && l.StartTime.After(*to) {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// unresolvedAlertsOfType counts unresolved alerts for assertions.
func (s *memStore) unresolvedAlertsOfType(alertType domain.AlertType) int {
	count := 0
	for _, a := range s.alerts {
		if a.Type == alertType && !a.Resolved {
			count++
		}
	}
	return count
}
