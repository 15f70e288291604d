package services

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm/logger"

	"github.com/tbourn/go-dogbreeds/internal/cache"
	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/observe"
	"github.com/tbourn/go-dogbreeds/internal/paging"
	"github.com/tbourn/go-dogbreeds/internal/repo"
	"github.com/tbourn/go-dogbreeds/internal/search"
)

// ---- fakes ----

type stubLoader struct {
	mu    sync.Mutex
	calls []paging.LoadType
	res   paging.Result
}

func (l *stubLoader) Load(_ context.Context, lt paging.LoadType, _ int) paging.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, lt)
	return l.res
}

func (l *stubLoader) Calls() []paging.LoadType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]paging.LoadType(nil), l.calls...)
}

type stubConn bool

func (c stubConn) IsConnected(context.Context) bool { return bool(c) }

func newSvc(t *testing.T, conn Connectivity) (*BreedService, *stubLoader) {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"), repo.WithLogger(logger.Discard))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if _, err := repo.Migrate(context.Background(), db, 1); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	store := cache.New(db, observe.NewTracker())
	loader := &stubLoader{}
	pager := paging.NewPager(store, loader, paging.Config{PageSize: 2})
	live := search.NewLive(store)
	return NewBreedService(store, pager, live, conn), loader
}

func seed(t *testing.T, s *BreedService, names ...string) {
	t.Helper()
	bs := make([]domain.Breed, len(names))
	for i, n := range names {
		bs[i] = domain.Breed{ID: i + 1, Name: n, Temperament: "Friendly"}
	}
	if err := s.Store.UpsertBreeds(context.Background(), bs); err != nil {
		t.Fatalf("UpsertBreeds: %v", err)
	}
}

// ---- tests ----

func TestGetBreed_NotFound_Invalid_AndFound(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx := context.Background()

	if _, err := s.GetBreed(ctx, 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("want ErrInvalidID, got %v", err)
	}
	if _, err := s.GetBreed(ctx, 42); !errors.Is(err, ErrBreedNotFound) {
		t.Fatalf("want ErrBreedNotFound, got %v", err)
	}

	seed(t, s, "Akita")
	b, err := s.GetBreed(ctx, 1)
	if err != nil || b.Name != "Akita" || b.IsFavorite {
		t.Fatalf("GetBreed = %+v, %v", b, err)
	}
}

func TestFavoriteBreed_CopiesAndMarksFavorite(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx := context.Background()
	seed(t, s, "Akita", "Beagle")

	f, err := s.FavoriteBreed(ctx, 2)
	if err != nil {
		t.Fatalf("FavoriteBreed: %v", err)
	}
	if f.ID != 2 || f.Name != "Beagle" || f.Temperament != "Friendly" {
		t.Fatalf("unexpected favorite %+v", f)
	}

	b, err := s.GetBreed(ctx, 2)
	if err != nil || !b.IsFavorite {
		t.Fatalf("expected breed 2 to be a favorite, got %+v, %v", b, err)
	}

	if _, err := s.FavoriteBreed(ctx, 99); !errors.Is(err, ErrBreedNotFound) {
		t.Fatalf("want ErrBreedNotFound, got %v", err)
	}
}

func TestSaveFavorite_StoresAsGivenAndReplaces(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx := context.Background()

	f, err := s.SaveFavorite(ctx, domain.Favorite{ID: 7})
	if err != nil {
		t.Fatalf("SaveFavorite: %v", err)
	}
	if f.Name != "" {
		t.Fatalf("name must be stored as given, got %q", f.Name)
	}

	if _, err := s.SaveFavorite(ctx, domain.Favorite{ID: 7, Name: "Pug"}); err != nil {
		t.Fatalf("SaveFavorite replace: %v", err)
	}
	favs, err := s.ListFavorites(ctx)
	if err != nil || len(favs) != 1 || favs[0].Name != "Pug" {
		t.Fatalf("ListFavorites = %+v, %v", favs, err)
	}
}

func TestRemoveFavorite(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx := context.Background()

	if err := s.RemoveFavorite(ctx, 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("want ErrInvalidID, got %v", err)
	}
	if err := s.RemoveFavorite(ctx, 3); !errors.Is(err, ErrFavoriteNotFound) {
		t.Fatalf("want ErrFavoriteNotFound, got %v", err)
	}
	if _, err := s.SaveFavorite(ctx, domain.Favorite{ID: 3, Name: "Boxer"}); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFavorite(ctx, 3); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
}

func TestListPage_DefaultsAndClamps(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx := context.Background()
	seed(t, s, "Akita", "Beagle", "Collie", "Dingo", "Eurasier")

	w, err := s.ListPage(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if w.Offset != 0 || len(w.Items) != 2 || w.Items[0].Name != "Akita" {
		t.Fatalf("page 1 = %+v", w)
	}
	if w.NextOffset == nil || *w.NextOffset != 2 || w.PrevOffset != nil {
		t.Fatalf("unexpected offsets prev=%v next=%v", w.PrevOffset, w.NextOffset)
	}

	w, err = s.ListPage(ctx, 3, 2)
	if err != nil || len(w.Items) != 1 || w.Items[0].Name != "Eurasier" || w.NextOffset != nil {
		t.Fatalf("page 3 = %+v, %v", w, err)
	}

	s.MaxPageSize = 3
	w, err = s.ListPage(ctx, 1, 50)
	if err != nil || len(w.Items) != 3 {
		t.Fatalf("clamped page = %d items, %v", len(w.Items), err)
	}
}

func TestListPage_HugePageIsEmpty(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx := context.Background()
	seed(t, s, "Akita", "Beagle", "Collie")

	for _, page := range []int{1<<62 + 1, math.MaxInt} {
		w, err := s.ListPage(ctx, page, 4)
		if err != nil {
			t.Fatalf("ListPage(%d): %v", page, err)
		}
		if len(w.Items) != 0 || w.NextOffset != nil {
			t.Fatalf("ListPage(%d) = %d items next=%v; want empty", page, len(w.Items), w.NextOffset)
		}
	}
}

func TestRefreshAndLoadMore_DelegateToPager(t *testing.T) {
	s, loader := newSvc(t, nil)
	loader.res = paging.Result{EndOfPaginationReached: true}

	if res := s.Refresh(context.Background()); !res.EndOfPaginationReached || res.Err != nil {
		t.Fatalf("Refresh = %+v", res)
	}
	_ = s.LoadMore(context.Background())

	calls := loader.Calls()
	if len(calls) != 2 || calls[0] != paging.Refresh || calls[1] != paging.Append {
		t.Fatalf("loader calls = %v", calls)
	}
}

func TestSearch(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx := context.Background()
	seed(t, s, "Siberian Husky", "Alaskan Malamute")
	s.Index.(*search.Live).Rebuild(mustAll(t, s))

	if _, err := s.Search(ctx, "   ", 5); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("want ErrEmptyQuery, got %v", err)
	}
	res, err := s.Search(ctx, "husky", 5)
	if err != nil || len(res) == 0 || res[0].Name != "Siberian Husky" {
		t.Fatalf("Search = %+v, %v", res, err)
	}

	res, err = s.Search(ctx, "zzz", 5)
	if err != nil || res == nil || len(res) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v, %v", res, err)
	}
}

func mustAll(t *testing.T, s *BreedService) []domain.Breed {
	t.Helper()
	all, err := s.Store.AllBreeds(context.Background())
	if err != nil {
		t.Fatalf("AllBreeds: %v", err)
	}
	return all
}

func TestStatus(t *testing.T) {
	s, _ := newSvc(t, stubConn(false))
	ctx := context.Background()
	seed(t, s, "Akita", "Beagle")
	if _, err := s.FavoriteBreed(ctx, 1); err != nil {
		t.Fatal(err)
	}

	st, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Connected {
		t.Fatalf("expected disconnected")
	}
	if st.Cache.Breeds != 2 || st.Cache.Favorites != 1 {
		t.Fatalf("unexpected cache stats %+v", st.Cache)
	}

	s.Connectivity = nil
	st, _ = s.Status(ctx)
	if !st.Connected {
		t.Fatalf("nil checker should report connected")
	}
}

func TestClear_KeepsFavorites(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx := context.Background()
	seed(t, s, "Akita")
	if _, err := s.FavoriteBreed(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.GetBreed(ctx, 1); !errors.Is(err, ErrBreedNotFound) {
		t.Fatalf("breed should be gone, got %v", err)
	}
	favs, _ := s.ListFavorites(ctx)
	if len(favs) != 1 {
		t.Fatalf("favorites should survive Clear, got %d", len(favs))
	}
}

func TestBreedByID_StreamsFavoriteToggle(t *testing.T) {
	s, _ := newSvc(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	seed(t, s, "Akita")

	ch := s.BreedByID(ctx, 1)
	first := <-ch
	if first == nil || first.IsFavorite {
		t.Fatalf("first emission = %+v", first)
	}

	if _, err := s.FavoriteBreed(ctx, 1); err != nil {
		t.Fatal(err)
	}
	for {
		select {
		case b := <-ch:
			if b != nil && b.IsFavorite {
				return
			}
		case <-ctx.Done():
			t.Fatalf("never observed favorite toggle")
		}
	}
}
