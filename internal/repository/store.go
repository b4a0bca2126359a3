package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prodmon/factory-engine/internal/domain"
	"gorm.io/gorm"
)

// pgLockNotAvailable is the SQLSTATE raised when lock_timeout expires.
const pgLockNotAvailable = "55P03"

const defaultLockTimeout = 3 * time.Second

// Store groups the entity repositories behind one transactional scope.
// Atomically runs fn against a store bound to a single database
// transaction: either every write inside fn commits, or none do.
type Store interface {
	Batches() BatchRepository
	Machines() MachineRepository
	Materials() MaterialRepository
	Alerts() AlertRepository
	ProductionLogs() ProductionLogRepository

	Atomically(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
	inTx        bool
}

func NewGormStore(db *gorm.DB, lockTimeout time.Duration) *GormStore {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &GormStore{db: db, lockTimeout: lockTimeout}
}

func (s *GormStore) Batches() BatchRepository             { return &GormBatchRepo{db: s.db} }
func (s *GormStore) Machines() MachineRepository          { return &GormMachineRepo{db: s.db} }
func (s *GormStore) Materials() MaterialRepository        { return &GormMaterialRepo{db: s.db} }
func (s *GormStore) Alerts() AlertRepository              { return &GormAlertRepo{db: s.db} }
func (s *GormStore) ProductionLogs() ProductionLogRepository { return &GormProductionLogRepo{db: s.db} }

// Atomically executes fn in one transaction with a bounded row-lock wait.
// A lock wait that exceeds the timeout rolls back and surfaces as
// ErrContention, so the caller can retry without partial state.
func (s *GormStore) Atomically(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if err := tx.Exec(timeout).Error; err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
		return fn(&GormStore{db: tx, lockTimeout: s.lockTimeout, inTx: true})
	})
	if isLockTimeoutError(err) {
		return fmt.Errorf("%w: lock wait timed out after %s", domain.ErrContention, s.lockTimeout)
	}
	return err
}

func isLockTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgLockNotAvailable
	}

	return strings.Contains(strings.ToLower(err.Error()), "lock timeout")
}
