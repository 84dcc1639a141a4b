package store

import (
	"context"
	"fmt"
)

// AdvisoryLock is a session-scoped postgres advisory lock pinned to a
// single pooled connection. Dropping the connection releases the lock, so
// a crashed holder cannot wedge the system.
type AdvisoryLock struct {
	key     int64
	release func() error
}

// Key returns the lock key.
func (l *AdvisoryLock) Key() int64 { return l.key }

// Release unlocks and returns the connection to the pool.
func (l *AdvisoryLock) Release() error {
	if l.release == nil {
		return nil
	}
	err := l.release()
	l.release = nil
	return err
}

// TryAdvisoryLock attempts a non-blocking advisory lock on key. Returns
// (nil, nil) when another session holds it. Dialects without advisory
// locks (the sqlite test driver) fall back to process-local locks, the
// ownership scope a single node needs.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (*AdvisoryLock, error) {
	if s.db.DB.Dialector.Name() != "postgres" {
		if _, held := s.localLocks.LoadOrStore(key, struct{}{}); held {
			return nil, nil
		}
		return &AdvisoryLock{
			key: key,
			release: func() error {
				s.localLocks.Delete(key)
				return nil
			},
		}, nil
	}

	sqlDB, err := s.db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to acquire advisory lock %d: %w", key, err)
	}
	if !acquired {
		conn.Close()
		return nil, nil
	}

	lock := &AdvisoryLock{
		key: key,
		release: func() error {
			_, unlockErr := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", key)
			closeErr := conn.Close()
			if unlockErr != nil {
				return unlockErr
			}
			return closeErr
		},
	}
	return lock, nil
}

// GameLockKey derives the advisory lock key for per-match ownership.
// Offset keeps game locks disjoint from the leader lock key space.
func GameLockKey(gameID uint) int64 {
	return 1_000_000 + int64(gameID)
}
