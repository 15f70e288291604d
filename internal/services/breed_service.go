// Package services – BreedService
//
// BreedService is the seam the UI layer consumes. It composes the cache
// (read path and favorite mutations), the pager (fill-on-demand path) and
// the offline search index. It holds no caching or transformation logic of
// its own.
//
// Reactive operations return channels that close when ctx is done. Snapshot
// variants serve request/response callers such as the HTTP facade.
package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-dogbreeds/internal/cache"
	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/paging"
	"github.com/tbourn/go-dogbreeds/internal/search"
)

// DefaultFavoritesLimit caps favorites lists.
const DefaultFavoritesLimit = 100

// Connectivity reports whether the remote catalog is reachable.
type Connectivity interface {
	IsConnected(ctx context.Context) bool
}

// BreedService provides the catalog operations.
type BreedService struct {
	Store *cache.Store
	Pager *paging.Pager
	Index search.Index
	// Connectivity is optional; a nil checker reports connected.
	Connectivity Connectivity

	FavoritesLimit int
	MaxPageSize    int
}

// NewBreedService constructs a BreedService with default limits.
func NewBreedService(store *cache.Store, pager *paging.Pager, idx search.Index, conn Connectivity) *BreedService {
	return &BreedService{
		Store:          store,
		Pager:          pager,
		Index:          idx,
		Connectivity:   conn,
		FavoritesLimit: DefaultFavoritesLimit,
		MaxPageSize:    100,
	}
}

func tracer() trace.Tracer { return otel.Tracer("services/BreedService") }

// ----------------------------------------------------------------------------
// Reactive operations

// PagedBreeds opens a paging session over the merged view. The caller must
// Close it (or cancel ctx).
func (s *BreedService) PagedBreeds(ctx context.Context) *paging.Session {
	return s.Pager.Open(ctx)
}

// BreedByID streams the merged view of one breed; nil while it is absent.
func (s *BreedService) BreedByID(ctx context.Context, id int) <-chan *domain.BreedWithFavorite {
	return s.Store.WatchBreed(ctx, id)
}

// Favorites streams the favorites list ordered by name.
func (s *BreedService) Favorites(ctx context.Context) <-chan []domain.Favorite {
	return s.Store.WatchFavorites(ctx, s.FavoritesLimit)
}

// SaveFavorite stores f as given, replacing any favorite with the same id.
// Callers own validation of f.
func (s *BreedService) SaveFavorite(ctx context.Context, f domain.Favorite) (*domain.Favorite, error) {
	if err := s.Store.UpsertFavorite(ctx, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// RemoveFavorite deletes the favorite with id. Removing a missing favorite
// returns ErrFavoriteNotFound.
func (s *BreedService) RemoveFavorite(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidID
	}
	deleted, err := s.Store.DeleteFavorite(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrFavoriteNotFound
	}
	return nil
}

// ----------------------------------------------------------------------------
// Snapshot operations

// GetBreed returns the current merged view of one breed.
func (s *BreedService) GetBreed(ctx context.Context, id int) (*domain.BreedWithFavorite, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	b, err := s.Store.BreedByID(ctx, id)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrBreedNotFound
	}
	return b, err
}

// ListFavorites returns the current favorites list.
func (s *BreedService) ListFavorites(ctx context.Context) ([]domain.Favorite, error) {
	return s.Store.Favorites(ctx, s.FavoritesLimit)
}

// ListPage returns one window of cached breeds. It applies defaults for
// invalid page/pageSize and never touches the network.
func (s *BreedService) ListPage(ctx context.Context, page, pageSize int) (cache.Window, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.Pager.Config.PageSize
	}
	if s.MaxPageSize > 0 && pageSize > s.MaxPageSize {
		pageSize = s.MaxPageSize
	}
	// Pages whose offset cannot be represented hold no rows.
	if page-1 > math.MaxInt/pageSize-1 {
		return cache.Window{Items: []domain.BreedWithFavorite{}}, nil
	}
	return s.Store.LoadWindow(ctx, (page-1)*pageSize, pageSize)
}

// Refresh reloads page 1 from the remote catalog.
func (s *BreedService) Refresh(ctx context.Context) paging.Result {
	ctx, span := tracer().Start(ctx, "Refresh")
	defer span.End()
	return s.Pager.Load(ctx, paging.Refresh)
}

// LoadMore fetches the page after the most recent cursor.
func (s *BreedService) LoadMore(ctx context.Context) paging.Result {
	ctx, span := tracer().Start(ctx, "LoadMore")
	defer span.End()
	return s.Pager.Load(ctx, paging.Append)
}

// FavoriteBreed copies a cached breed into the favorites table.
func (s *BreedService) FavoriteBreed(ctx context.Context, id int) (*domain.Favorite, error) {
	ctx, span := tracer().Start(ctx, "FavoriteBreed", trace.WithAttributes(attribute.Int("breed.id", id)))
	defer span.End()

	b, err := s.GetBreed(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SaveFavorite(ctx, domain.FavoriteFrom(b.Breed))
}

// Search ranks cached breeds against q. k <= 0 uses the index default.
func (s *BreedService) Search(ctx context.Context, q string, k int) ([]search.Result, error) {
	_, span := tracer().Start(ctx, "Search", trace.WithAttributes(attribute.Int("search.k", k)))
	defer span.End()

	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	if s.Index == nil {
		return []search.Result{}, nil
	}
	res := s.Index.TopK(q, k)
	if res == nil {
		res = []search.Result{}
	}
	return res, nil
}

// Status describes the local catalog.
type Status struct {
	Connected bool        `json:"connected"`
	Cache     cache.Stats `json:"cache"`
	Indexed   int         `json:"indexed"`
}

// Status reports connectivity and cache counts.
func (s *BreedService) Status(ctx context.Context) (Status, error) {
	st, err := s.Store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	out := Status{Connected: true, Cache: st}
	if s.Connectivity != nil {
		out.Connected = s.Connectivity.IsConnected(ctx)
	}
	if s.Index != nil {
		out.Indexed = s.Index.Len()
	}
	return out, nil
}

// CacheStats reports cache counts without probing the network.
func (s *BreedService) CacheStats(ctx context.Context) (cache.Stats, error) {
	return s.Store.Stats(ctx)
}

// Clear wipes cached breeds and cursors; favorites are kept.
func (s *BreedService) Clear(ctx context.Context) error {
	return s.Store.Clear(ctx)
}
