// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Favorite
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// UpsertFavorite inserts a favorite or replaces the row with the same id.
// A zero CreatedAt is set to the current UTC time.
func UpsertFavorite(ctx context.Context, db *gorm.DB, f *domain.Favorite) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(f).Error
}

// GetFavorite fetches a favorite by id, or ErrNotFound.
func GetFavorite(ctx context.Context, db *gorm.DB, id int) (*domain.Favorite, error) {
	var f domain.Favorite
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFavorites returns favorites ordered by name ascending (id as
// tie-break), capped at limit rows when limit > 0.
func ListFavorites(ctx context.Context, db *gorm.DB, limit int) ([]domain.Favorite, error) {
	out := []domain.Favorite{}
	q := db.WithContext(ctx).Order("name ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// DeleteFavorite removes the favorite with the given id and reports whether
// a row was deleted. Deleting a missing id is not an error.
func DeleteFavorite(ctx context.Context, db *gorm.DB, id int) (bool, error) {
	res := db.WithContext(ctx).Delete(&domain.Favorite{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountFavorites returns the number of favorite rows.
func CountFavorites(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Favorite{}).Count(&total).Error
	return total, err
}
