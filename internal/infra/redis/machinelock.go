package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prodmon/factory-engine/internal/domain"
	"github.com/prodmon/factory-engine/internal/service"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL     = 10 * time.Second
	defaultLockWait    = 2 * time.Second
	lockBackoffStep    = 25 * time.Millisecond
	lockBackoffMax     = 100 * time.Millisecond
	releaseCallTimeout = time.Second
)

// Delete only if the token still matches, so a lock that expired and was
// re-acquired by another caller is never released by the old holder.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ service.MachineLocker = (*MachineLock)(nil)

// MachineLock is a distributed advisory lock keyed by machine id. It
// serializes batch creation per machine across processes; the wait is
// bounded and surfaces as ErrContention instead of blocking.
type MachineLock struct {
	client      *goredis.Client
	ttl         time.Duration
	waitTimeout time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewMachineLock(client *goredis.Client) (*MachineLock, error) {
	return newMachineLock(client, defaultLockTTL, defaultLockWait, time.Now, sleepWithContext)
}

func newMachineLock(
	client *goredis.Client,
	ttl time.Duration,
	waitTimeout time.Duration,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*MachineLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if waitTimeout <= 0 {
		waitTimeout = defaultLockWait
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &MachineLock{
		client:      client,
		ttl:         ttl,
		waitTimeout: waitTimeout,
		now:         nowFn,
		sleep:       sleepFn,
	}, nil
}

// Lock acquires the per-machine lock and returns a release func. Waiting
// callers back off and retry until the bounded wait expires.
func (l *MachineLock) Lock(ctx context.Context, machineID string) (func(), error) {
	if l == nil || l.client == nil {
		return nil, fmt.Errorf("machine lock is not initialized")
	}
	if strings.TrimSpace(machineID) == "" {
		return nil, fmt.Errorf("%w: machine id is required", domain.ErrValidation)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := "machinelock:" + machineID
	token := uuid.NewString()
	deadline := l.now().Add(l.waitTimeout)
	backoff := lockBackoffStep

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire machine lock: %w", err)
		}
		if acquired {
			return func() { l.release(key, token) }, nil
		}

		if !l.now().Before(deadline) {
			return nil, fmt.Errorf("%w: machine %s is locked by a concurrent operation", domain.ErrContention, machineID)
		}

		if err := l.sleep(ctx, backoff); err != nil {
			return nil, err
		}

		backoff += lockBackoffStep
		if backoff > lockBackoffMax {
			backoff = lockBackoffMax
		}
	}
}

func (l *MachineLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseCallTimeout)
	defer cancel()
	_, _ = releaseScript.Run(ctx, l.client, []string{key}, token).Result()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
