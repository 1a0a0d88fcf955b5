package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNotConfigured indicates storage was not initialised.
var ErrNotConfigured = errors.New("storage not configured")

const (
	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Locker takes session-level advisory locks on a dedicated connection.
type Locker struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

var _ AdvisoryLocker = (*Locker)(nil)

// NewLocker wires a pgx pool into a Locker.
func NewLocker(pool *pgxpool.Pool, logger zerolog.Logger) *Locker {
	return &Locker{pool: pool, logger: logger.With().Str("component", "advisory_lock").Logger()}
}

// Close releases the underlying pool resources.
func (l *Locker) Close() {
	if l == nil || l.pool == nil {
		return
	}
	l.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
// The connection stays checked out until the release func runs.
func (l *Locker) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if l == nil || l.pool == nil {
		return nil, false, ErrNotConfigured
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			l.logger.Warn().Err(err).Int64("key", key).Msg("advisory unlock failed")
		}
		conn.Release()
	}
	return unlock, true, nil
}

// AcquireLeadership blocks until locker grants key or ctx ends, retrying
// every retry interval. Lock errors are returned immediately.
func AcquireLeadership(ctx context.Context, locker AdvisoryLocker, key int64, retry time.Duration, logger zerolog.Logger) (func(), error) {
	if retry <= 0 {
		retry = 5 * time.Second
	}
	waiting := false
	for {
		unlock, acquired, err := locker.TryAdvisoryLock(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("acquire advisory lock: %w", err)
		}
		if acquired {
			logger.Info().Int64("key", key).Msg("leadership acquired")
			return unlock, nil
		}
		if !waiting {
			logger.Info().Int64("key", key).Msg("another instance holds leadership, standing by")
			waiting = true
		}

		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
