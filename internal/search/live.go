package search

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/observe"
)

// Corpus supplies the breeds to index.
type Corpus interface {
	AllBreeds(ctx context.Context) ([]domain.Breed, error)
}

// Live is an Index kept in sync with the breed cache. It is rebuilt after
// every committed change to the breeds table.
type Live struct {
	corpus Corpus
	opts   []Option
	cur    atomic.Pointer[index]
}

// NewLive returns an empty Live index. Call Run to start syncing.
func NewLive(corpus Corpus, opts ...Option) *Live {
	l := &Live{corpus: corpus, opts: opts}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	l.cur.Store(&index{cfg: cfg})
	return l
}

// Run rebuilds the index now and after each change to tables, until ctx is
// done.
func (l *Live) Run(ctx context.Context, t *observe.Tracker, tables ...string) {
	for breeds := range observe.Watch(ctx, t, l.corpus.AllBreeds, tables...) {
		l.Rebuild(breeds)
	}
}

// Rebuild replaces the index with one built from breeds.
func (l *Live) Rebuild(breeds []domain.Breed) {
	idx := NewIndex(breeds, l.opts...).(*index)
	l.cur.Store(idx)
	log.Debug().Int("docs", idx.Len()).Msg("search index rebuilt")
}

// TopK searches the current index.
func (l *Live) TopK(q string, k int) []Result { return l.cur.Load().TopK(q, k) }

// Len reports the number of indexed breeds.
func (l *Live) Len() int { return l.cur.Load().Len() }
