// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Breed
// model and the merged breed/favorite read query.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a breed is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - UpsertBreeds(ctx, db, breeds) -> error
//     Inserts or fully replaces rows keyed by id.
//
//   - GetBreed(ctx, db, id) -> *domain.BreedWithFavorite, error
//     Fetches one breed with its favorite flag, or ErrNotFound.
//
//   - ListBreedsPage(ctx, db, offset, limit) -> []domain.BreedWithFavorite, error
//     Returns an ordered window (name ASC, id ASC) of the merged view.
//
//   - AllBreeds(ctx, db) -> []domain.Breed, error
//     Returns every cached breed in window order (used to build the search index).
//
//   - CountBreeds(ctx, db) -> int64, error
//
//   - ClearBreeds(ctx, db) -> error
//     Deletes every cached breed (full cache reset).
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the cache and service layers.
var ErrNotFound = gorm.ErrRecordNotFound

// mergedSelect projects every breed column plus the favorite flag computed
// by an existence check at query time.
const mergedSelect = `
SELECT b.*,
       EXISTS (SELECT 1 FROM favorites f WHERE f.id = b.id) AS is_favorite
FROM breeds b`

// UpsertBreeds inserts breeds, replacing every column of rows whose id
// already exists. An empty slice is a no-op.
func UpsertBreeds(ctx context.Context, db *gorm.DB, breeds []domain.Breed) error {
	if len(breeds) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&breeds).Error
}

// GetBreed fetches a single breed by id together with its favorite flag.
// If the record does not exist, it returns ErrNotFound.
func GetBreed(ctx context.Context, db *gorm.DB, id int) (*domain.BreedWithFavorite, error) {
	var out []domain.BreedWithFavorite
	err := db.WithContext(ctx).
		Raw(mergedSelect+" WHERE b.id = ? LIMIT 1", id).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// ListBreedsPage returns a window of the merged view ordered by name
// ascending with id as a stable tie-break. It returns an empty slice past
// the end of the table.
//
// The caller is responsible for computing offset and limit.
func ListBreedsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.BreedWithFavorite, error) {
	out := []domain.BreedWithFavorite{}
	err := db.WithContext(ctx).
		Raw(mergedSelect+" ORDER BY b.name ASC, b.id ASC LIMIT ? OFFSET ?", limit, offset).
		Scan(&out).Error
	return out, err
}

// AllBreeds returns every cached breed ordered by name then id.
func AllBreeds(ctx context.Context, db *gorm.DB) ([]domain.Breed, error) {
	out := []domain.Breed{}
	err := db.WithContext(ctx).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// CountBreeds returns the number of cached breeds.
func CountBreeds(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Breed{}).Count(&total).Error
	return total, err
}

// ClearBreeds deletes every cached breed. Favorites are untouched.
func ClearBreeds(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.Breed{}).Error
}
