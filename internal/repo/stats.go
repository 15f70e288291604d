// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// BreedsStats returns the number of cached breeds and the greatest CachedAt
// among them. When the cache is empty, the count is 0 and latest is nil.
func BreedsStats(ctx context.Context, db *gorm.DB) (count int64, latest *time.Time, err error) {
	return tableStats(ctx, db.Model(&domain.Breed{}), "cached_at", &count)
}

// FavoritesStats returns the number of favorites and the greatest CreatedAt
// among them. When there are no favorites, the count is 0 and latest is nil.
func FavoritesStats(ctx context.Context, db *gorm.DB) (count int64, latest *time.Time, err error) {
	return tableStats(ctx, db.Model(&domain.Favorite{}), "created_at", &count)
}

func tableStats(ctx context.Context, q *gorm.DB, column string, count *int64) (int64, *time.Time, error) {
	q = q.WithContext(ctx)
	if err := q.Count(count).Error; err != nil {
		return 0, nil, err
	}
	if *count == 0 {
		return 0, nil, nil
	}

	// Order+limit instead of MAX(): SQLite returns MAX() over timestamps as TEXT.
	var latest []time.Time
	if err := q.Order(column+" DESC").Limit(1).Pluck(column, &latest).Error; err != nil {
		return 0, nil, err
	}
	if len(latest) == 0 {
		return *count, nil, nil
	}
	return *count, &latest[0], nil
}
