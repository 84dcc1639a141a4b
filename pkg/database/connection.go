package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Pool sizing leaves headroom for pinned connections: the scheduler's
// leader lock and every live match hold one for their lifetime, outside
// the pool's idle rotation.
const (
	maxOpenConns    = 60
	maxIdleConns    = 8
	connMaxLifetime = time.Hour
	connMaxIdleTime = 10 * time.Minute
	pingTimeout     = 5 * time.Second
)

// DB wraps the gorm handle so callers depend on one type for both the
// postgres pool and the sqlite test connection.
type DB struct {
	*gorm.DB
}

// NewConnection opens the postgres pool and verifies it with a bounded
// ping. Timestamps are normalized to UTC at the driver level; the game
// clock applies its zone on read.
func NewConnection(databaseURL string, isDevelopment bool) (*DB, error) {
	gormLog := logger.Default.LogMode(logger.Error)
	if isDevelopment {
		gormLog = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:      gormLog,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get pool handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	logrus.Info("Database pool ready")
	return &DB{db}, nil
}

// Close drains the pool. Pinned advisory-lock connections release their
// locks server-side as they close.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
