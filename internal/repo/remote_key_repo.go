// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for pagination
// cursors (remote keys). Only the paging coordinator reads them.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// UpsertRemoteKeys inserts cursor rows, replacing rows with the same breed
// id. An empty slice is a no-op.
func UpsertRemoteKeys(ctx context.Context, db *gorm.DB, keys []domain.RemoteKey) error {
	if len(keys) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&keys).Error
}

// GetRemoteKey returns the cursor written for breed id, or ErrNotFound.
func GetRemoteKey(ctx context.Context, db *gorm.DB, id int) (*domain.RemoteKey, error) {
	var k domain.RemoteKey
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&k).Error; err != nil {
		return nil, err
	}
	return &k, nil
}

// LastRemoteKey returns the cursor row with the highest breed id, which is
// the authoritative "what page comes next" state. It returns ErrNotFound
// when no page has been fetched yet.
func LastRemoteKey(ctx context.Context, db *gorm.DB) (*domain.RemoteKey, error) {
	var k domain.RemoteKey
	err := db.WithContext(ctx).
		Order("id DESC").
		Limit(1).
		Take(&k).Error
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// ClearRemoteKeys deletes every cursor row.
func ClearRemoteKeys(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.RemoteKey{}).Error
}
