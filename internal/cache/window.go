package cache

import (
	"context"
	"errors"

	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/observe"
	"github.com/tbourn/go-dogbreeds/internal/repo"
)

// Window is one slice of the merged view, ordered by name then id, plus the
// offsets of the neighbouring windows. NextOffset is nil once the window
// reaches the end of the cached rows; PrevOffset is nil at the start.
type Window struct {
	Offset     int                        `json:"offset"`
	Items      []domain.BreedWithFavorite `json:"items"`
	PrevOffset *int                       `json:"prev_offset"`
	NextOffset *int                       `json:"next_offset"`
}

// LoadWindow returns up to limit rows of the merged view starting at offset.
// The favorite flag is computed at query time.
func (s *Store) LoadWindow(ctx context.Context, offset, limit int) (Window, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return Window{Offset: offset, Items: []domain.BreedWithFavorite{}}, nil
	}

	// One extra row tells us whether another window follows.
	rows, err := repo.ListBreedsPage(ctx, s.DB, offset, limit+1)
	if err != nil {
		return Window{}, err
	}

	w := Window{Offset: offset, Items: rows}
	if len(rows) > limit {
		w.Items = rows[:limit]
		next := offset + limit
		w.NextOffset = &next
	}
	if offset > 0 {
		prev := max(offset-limit, 0)
		w.PrevOffset = &prev
	}
	return w, nil
}

// WatchWindow emits LoadWindow(offset, limit) now and after every change to
// breeds or favorites, until ctx is done.
func (s *Store) WatchWindow(ctx context.Context, offset, limit int) <-chan Window {
	return observe.Watch(ctx, s.Tracker, func(ctx context.Context) (Window, error) {
		return s.LoadWindow(ctx, offset, limit)
	}, TableBreeds, TableFavorites)
}

// WatchBreed emits the merged view of one breed, or nil while it is absent.
func (s *Store) WatchBreed(ctx context.Context, id int) <-chan *domain.BreedWithFavorite {
	return observe.Watch(ctx, s.Tracker, func(ctx context.Context) (*domain.BreedWithFavorite, error) {
		b, err := s.BreedByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return b, err
	}, TableBreeds, TableFavorites)
}

// WatchFavorites emits the favorites list (name order, capped at limit).
func (s *Store) WatchFavorites(ctx context.Context, limit int) <-chan []domain.Favorite {
	return observe.Watch(ctx, s.Tracker, func(ctx context.Context) ([]domain.Favorite, error) {
		return s.Favorites(ctx, limit)
	}, TableFavorites)
}
