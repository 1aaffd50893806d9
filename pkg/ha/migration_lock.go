// Package ha provides primitives for running the document vault server with
// multiple replicas. Schema migrations are serialized through a database lock
// so that concurrent AutoMigrate calls from starting replicas never race.
package ha

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"
)

// MigrationLocker serializes schema migrations across server replicas.
type MigrationLocker interface {
	// WithLock runs fn while holding the migration lock. It blocks until the
	// lock is acquired and releases it after fn returns.
	WithLock(ctx context.Context, fn func() error) error
}

// MigrationLockEnabled reports whether migration locking is enabled. It
// defaults to true and can be disabled with
// DOCUVAULT_MIGRATION_LOCK_ENABLED=false for single-replica deployments.
func MigrationLockEnabled() bool {
	v := strings.TrimSpace(os.Getenv("DOCUVAULT_MIGRATION_LOCK_ENABLED"))
	return !strings.EqualFold(v, "false")
}

// NewMigrationLocker returns a MigrationLocker for the database dialect.
// PostgreSQL uses an advisory lock; SQLite and MySQL fall back to a lock
// table with insert-or-fail semantics. The lock table is created up front so
// concurrent first callers never see a missing table.
func NewMigrationLocker(db *gorm.DB) MigrationLocker {
	if db == nil {
		return noopLock{}
	}
	if db.Dialector.Name() == "postgres" {
		return &advisoryLock{
			db:     db,
			lockID: int64(crc32.ChecksumIEEE([]byte("docuvault-migration"))),
		}
	}
	lock := &tableLock{db: db}
	_ = db.AutoMigrate(&migrationLockRecord{})
	return lock
}

type noopLock struct{}

func (noopLock) WithLock(_ context.Context, fn func() error) error { return fn() }

type advisoryLock struct {
	db     *gorm.DB
	lockID int64
}

func (l *advisoryLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.db.WithContext(ctx).Exec("SELECT pg_advisory_lock(?)", l.lockID).Error; err != nil {
		return fmt.Errorf("failed to acquire migration advisory lock: %w", err)
	}
	defer func() {
		_ = l.db.Exec("SELECT pg_advisory_unlock(?)", l.lockID).Error
	}()
	return fn()
}

type migrationLockRecord struct {
	ID       string    `gorm:"primaryKey;column:id"`
	LockedAt time.Time `gorm:"column:locked_at"`
	LockedBy string    `gorm:"column:locked_by"`
}

func (migrationLockRecord) TableName() string { return "migration_lock" }

// tableLock is the lock-table strategy for non-PostgreSQL databases. A stale
// row older than staleLockAge is treated as a crashed holder and removed.
type tableLock struct {
	db *gorm.DB
}

const (
	lockMaxRetries   = 30
	lockRetryBackoff = time.Second
	staleLockAge     = 5 * time.Minute
)

func (l *tableLock) WithLock(ctx context.Context, fn func() error) error {
	holder, _ := os.Hostname()
	if holder == "" {
		holder = "unknown"
	}

	row := migrationLockRecord{ID: "migration", LockedBy: holder}

	acquired := false
	for i := 0; i < lockMaxRetries; i++ {
		l.db.WithContext(ctx).
			Where("id = ? AND locked_at < ?", "migration", time.Now().Add(-staleLockAge)).
			Delete(&migrationLockRecord{})

		row.LockedAt = time.Now()
		result := l.db.WithContext(ctx).Create(&row)
		if result.Error == nil {
			acquired = true
			break
		}
		if i == lockMaxRetries-1 {
			return fmt.Errorf("failed to acquire migration lock after %d retries: %w", lockMaxRetries, result.Error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryBackoff):
		}
	}
	if !acquired {
		return fmt.Errorf("failed to acquire migration lock")
	}

	defer func() {
		l.db.Where("id = ?", "migration").Delete(&migrationLockRecord{})
	}()

	return fn()
}
