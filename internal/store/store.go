// Package store is the persistent store gateway: the only component that
// writes durable entities. Cross-entity mutations happen inside one
// transaction per logical operation, and every financial mutation records
// an append-only ledger row in the same transaction.
package store

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jimmy058910/replitballgame-sub006/pkg/database"
)

const (
	txMaxRetries = 5
	txBaseDelay  = 20 * time.Millisecond
)

type Store struct {
	db     *database.DB
	logger *logrus.Logger

	// Process-local advisory locks for dialects without pg_advisory_lock.
	localLocks sync.Map
}

func NewStore(db *database.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying handle for read-only queries. Writes go
// through WithTx.
func (s *Store) DB() *gorm.DB {
	return s.db.DB
}

// WithTx runs fn in a transaction, retrying serialization conflicts and
// deadlocks up to txMaxRetries times with bounded jitter. All other errors
// propagate unchanged.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < txMaxRetries; attempt++ {
		err = s.db.DB.WithContext(ctx).Transaction(fn)
		if err == nil || !isRetryableTxError(err) {
			return err
		}
		delay := txBaseDelay*time.Duration(attempt+1) + time.Duration(rand.Int63n(int64(txBaseDelay)))
		s.logger.Warnf("Retryable transaction conflict (attempt %d/%d): %v", attempt+1, txMaxRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// LockForUpdate applies FOR UPDATE row locking on dialects that support
// it. The sqlite test driver serializes writes on its own.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// isRetryableTxError recognizes serialization failures and deadlocks.
func isRetryableTxError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 40001") || strings.Contains(msg, "SQLSTATE 40P01")
}
