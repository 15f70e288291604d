// Package repo implements the data persistence layer for the breed cache,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and the destructive, version-driven migration.
package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// options tunes OpenSQLite.
type options struct {
	logger  logger.Interface
	tracing bool
}

// Option configures OpenSQLite.
type Option func(*options)

// WithLogger replaces GORM's default logger (e.g. logger.Discard in tests).
func WithLogger(l logger.Interface) Option {
	return func(o *options) { o.logger = l }
}

// WithTracing installs the OpenTelemetry GORM plugin so every query emits a
// span under the caller's context.
func WithTracing() Option {
	return func(o *options) { o.tracing = true }
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	o := options{logger: logger.Default.LogMode(logger.Warn)}
	for _, fn := range opts {
		fn(&o)
	}

	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: o.logger})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if o.tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// cacheTables lists every table owned by the local cache, in drop order.
var cacheTables = []any{
	&domain.RemoteKey{},
	&domain.Favorite{},
	&domain.Breed{},
	&domain.SchemaMeta{},
}

// AutoMigrate creates any missing cache tables and indexes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Breed{},
		&domain.Favorite{},
		&domain.RemoteKey{},
		&domain.SchemaMeta{},
	)
}

// Migrate brings the schema to version. A database created with a different
// version is wiped and recreated; there is no incremental migration path.
// It reports whether existing data was discarded.
func Migrate(ctx context.Context, db *gorm.DB, version int) (wiped bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := tx.Migrator()
		if m.HasTable(&domain.SchemaMeta{}) {
			var meta domain.SchemaMeta
			err := tx.Take(&meta, "id = ?", 1).Error
			switch {
			case err == nil && meta.Version == version:
				return AutoMigrate(tx)
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
			wiped = true
		}

		if err := m.DropTable(cacheTables...); err != nil {
			return err
		}
		if err := AutoMigrate(tx); err != nil {
			return err
		}
		return tx.Create(&domain.SchemaMeta{ID: 1, Version: version}).Error
	})
	return wiped, err
}

// SchemaVersion returns the version recorded in schema_meta. It fails when
// the database has never been migrated.
func SchemaVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var meta domain.SchemaMeta
	if err := db.WithContext(ctx).Take(&meta, "id = ?", 1).Error; err != nil {
		return 0, err
	}
	return meta.Version, nil
}
