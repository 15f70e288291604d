package paging

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/gorm/logger"

	"github.com/tbourn/go-dogbreeds/internal/cache"
	"github.com/tbourn/go-dogbreeds/internal/observe"
	"github.com/tbourn/go-dogbreeds/internal/remote"
	"github.com/tbourn/go-dogbreeds/internal/repo"
)

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[int][]remote.BreedResponse
	errs    map[int]error
	calls   []int
	panicOn int
	// block, when set, is received from before answering.
	block chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[int][]remote.BreedResponse{}, errs: map[int]error{}}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, pageSize, page int) ([]remote.BreedResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	rows, err, block := f.pages[page], f.errs[page], f.block
	panicOn := f.panicOn
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &remote.TransportError{Op: "GET /breeds", Err: ctx.Err()}
		}
	}
	if panicOn != 0 && page == panicOn {
		panic("boom")
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (f *fakeFetcher) set(page int, rows []remote.BreedResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page] = rows
	delete(f.errs, page)
}

func (f *fakeFetcher) fail(page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[page] = err
}

func (f *fakeFetcher) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

// rows returns n rows with consecutive ids starting at first. Names sort in
// id order.
func rows(first, n int) []remote.BreedResponse {
	out := make([]remote.BreedResponse, n)
	for i := range out {
		id := first + i
		name := fmt.Sprintf("Breed %04d", id)
		metric := "10 - 20"
		out[i] = remote.BreedResponse{
			ID:     &id,
			Name:   &name,
			Weight: &remote.Measure{Metric: &metric},
		}
	}
	return out
}

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "paging.db"), repo.WithLogger(logger.Discard))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if _, err := repo.Migrate(context.Background(), db, 1); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return cache.New(db, observe.NewTracker())
}

func countBreeds(t *testing.T, s *cache.Store) int64 {
	t.Helper()
	n, err := repo.CountBreeds(context.Background(), s.DB)
	if err != nil {
		t.Fatalf("CountBreeds: %v", err)
	}
	return n
}

func newStoreOf(m *Mediator) *cache.Store { return m.Store.(*cache.Store) }
