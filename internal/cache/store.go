// Package cache is the single source of truth for breed data on this device.
// It wraps the repo functions with transactional writes, post-commit change
// notification and reactive (watchable) reads over the merged breed/favorite
// view.
//
// Every write runs in one transaction, so a multi-row call either lands
// completely or not at all, and readers never observe a partial page.
// Subscribers are notified only after the transaction commits.
package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/observe"
	"github.com/tbourn/go-dogbreeds/internal/repo"
)

// Table names used for change notification.
const (
	TableBreeds     = "breeds"
	TableFavorites  = "favorites"
	TableRemoteKeys = "remote_keys"
)

// ErrNotFound is returned by point lookups for a missing id.
var ErrNotFound = repo.ErrNotFound

// Store provides the cache operations used by the paging coordinator and
// the service layer.
type Store struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Tracker receives table invalidations after each committed write.
	Tracker *observe.Tracker

	now func() time.Time
}

// New constructs a Store. A nil tracker gets a private one.
func New(db *gorm.DB, tracker *observe.Tracker) *Store {
	if tracker == nil {
		tracker = observe.NewTracker()
	}
	return &Store{DB: db, Tracker: tracker, now: func() time.Time { return time.Now().UTC() }}
}

// write runs fn in a transaction and notifies tables once it has committed.
func (s *Store) write(ctx context.Context, fn func(tx *gorm.DB) error, tables ...string) error {
	if err := s.DB.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}
	s.Tracker.Notify(tables...)
	return nil
}

func (s *Store) stamp(breeds []domain.Breed) {
	now := s.now()
	for i := range breeds {
		if breeds[i].CachedAt.IsZero() {
			breeds[i].CachedAt = now
		}
	}
}

// Changes subscribes to invalidations of the given tables. See
// observe.Tracker.Subscribe.
func (s *Store) Changes(tables ...string) (<-chan struct{}, func()) {
	return s.Tracker.Subscribe(tables...)
}

// UpsertBreeds inserts or fully replaces breeds by id.
func (s *Store) UpsertBreeds(ctx context.Context, breeds []domain.Breed) error {
	if len(breeds) == 0 {
		return nil
	}
	s.stamp(breeds)
	return s.write(ctx, func(tx *gorm.DB) error {
		return repo.UpsertBreeds(ctx, tx, breeds)
	}, TableBreeds)
}

// UpsertFavorite inserts or replaces a favorite by id.
func (s *Store) UpsertFavorite(ctx context.Context, f *domain.Favorite) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		return repo.UpsertFavorite(ctx, tx, f)
	}, TableFavorites)
}

// UpsertRemoteKeys inserts or replaces cursor rows by breed id.
func (s *Store) UpsertRemoteKeys(ctx context.Context, keys []domain.RemoteKey) error {
	if len(keys) == 0 {
		return nil
	}
	return s.write(ctx, func(tx *gorm.DB) error {
		return repo.UpsertRemoteKeys(ctx, tx, keys)
	}, TableRemoteKeys)
}

// InsertPage writes one fetched page: breeds first, then their cursors, in a
// single transaction. With resetKeys set, existing cursors are deleted first
// so the page becomes the new cursor baseline.
func (s *Store) InsertPage(ctx context.Context, breeds []domain.Breed, keys []domain.RemoteKey, resetKeys bool) error {
	s.stamp(breeds)
	return s.write(ctx, func(tx *gorm.DB) error {
		if resetKeys {
			if err := repo.ClearRemoteKeys(ctx, tx); err != nil {
				return err
			}
		}
		if err := repo.UpsertBreeds(ctx, tx, breeds); err != nil {
			return err
		}
		return repo.UpsertRemoteKeys(ctx, tx, keys)
	}, TableBreeds, TableRemoteKeys)
}

// BreedByID returns the merged view of one breed, or ErrNotFound.
func (s *Store) BreedByID(ctx context.Context, id int) (*domain.BreedWithFavorite, error) {
	return repo.GetBreed(ctx, s.DB, id)
}

// RemoteKeyByBreedID returns the cursor written for a breed id, or ErrNotFound.
func (s *Store) RemoteKeyByBreedID(ctx context.Context, id int) (*domain.RemoteKey, error) {
	return repo.GetRemoteKey(ctx, s.DB, id)
}

// LastRemoteKey returns the authoritative cursor, or (nil, nil) when no page
// has been fetched yet.
func (s *Store) LastRemoteKey(ctx context.Context) (*domain.RemoteKey, error) {
	k, err := repo.LastRemoteKey(ctx, s.DB)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return k, err
}

// FavoriteByID returns one favorite, or ErrNotFound.
func (s *Store) FavoriteByID(ctx context.Context, id int) (*domain.Favorite, error) {
	return repo.GetFavorite(ctx, s.DB, id)
}

// Favorites returns favorites ordered by name, capped at limit (0 = all).
func (s *Store) Favorites(ctx context.Context, limit int) ([]domain.Favorite, error) {
	return repo.ListFavorites(ctx, s.DB, limit)
}

// AllBreeds returns every cached breed in window order.
func (s *Store) AllBreeds(ctx context.Context) ([]domain.Breed, error) {
	return repo.AllBreeds(ctx, s.DB)
}

// DeleteFavorite removes one favorite and reports whether it existed.
func (s *Store) DeleteFavorite(ctx context.Context, id int) (bool, error) {
	var deleted bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = repo.DeleteFavorite(ctx, tx, id)
		return err
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.Tracker.Notify(TableFavorites)
	}
	return deleted, nil
}

// Clear wipes cached breeds and cursors. Favorites are kept.
func (s *Store) Clear(ctx context.Context) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		if err := repo.ClearRemoteKeys(ctx, tx); err != nil {
			return err
		}
		return repo.ClearBreeds(ctx, tx)
	}, TableBreeds, TableRemoteKeys)
}

// Stats summarises the cache for status reporting and ETags.
type Stats struct {
	Breeds         int64      `json:"breeds"`
	LatestBreed    *time.Time `json:"latest_breed,omitempty"`
	Favorites      int64      `json:"favorites"`
	LatestFavorite *time.Time `json:"latest_favorite,omitempty"`
}

// Stats returns row counts and latest write timestamps.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Breeds, st.LatestBreed, err = repo.BreedsStats(ctx, s.DB); err != nil {
		return Stats{}, err
	}
	if st.Favorites, st.LatestFavorite, err = repo.FavoritesStats(ctx, s.DB); err != nil {
		return Stats{}, err
	}
	return st, nil
}
