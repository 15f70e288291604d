package paging

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/go-dogbreeds/internal/cache"
	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// WindowSource is the read side a session renders from.
type WindowSource interface {
	LoadWindow(ctx context.Context, offset, limit int) (cache.Window, error)
	Changes(tables ...string) (<-chan struct{}, func())
}

// Loader runs one page load. *Mediator implements it.
type Loader interface {
	Load(ctx context.Context, lt LoadType, pageSize int) Result
}

// Config tunes the paging driver.
type Config struct {
	// PageSize is both the remote page size and the window growth step.
	PageSize int
	// PrefetchDistance is how close to the tail an access must be to grow
	// the window or trigger an append.
	PrefetchDistance int
	// InitialRefresh runs a Refresh when a session opens.
	InitialRefresh bool
}

// Pager opens paging sessions over a window source and a loader.
// Identical loads issued concurrently, from any session or from Load, share
// one execution.
type Pager struct {
	Source WindowSource
	Loader Loader
	Config Config
	Log    zerolog.Logger

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context a shared load runs under. It is cancelled once
// every caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewPager returns a Pager with defaults applied to cfg.
func NewPager(src WindowSource, loader Loader, cfg Config) *Pager {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.PrefetchDistance < 0 {
		cfg.PrefetchDistance = 0
	}
	return &Pager{
		Source: src,
		Loader: loader,
		Config: cfg,
		Log:    log.Logger.With().Str("component", "pager").Logger(),
	}
}

// Load runs lt with the configured page size, coalescing with any identical
// load already in flight. Each caller returns when its own ctx is done; the
// shared fetch is cancelled only when no caller is left waiting on it.
func (p *Pager) Load(ctx context.Context, lt LoadType) Result {
	key := lt.String()

	p.mu.Lock()
	if p.flights == nil {
		p.flights = make(map[string]*flight)
	}
	f, ok := p.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		p.flights[key] = f
	}
	f.waiters++
	ch := p.group.DoChan(key, func() (any, error) {
		defer p.land(key, f)
		return p.Loader.Load(f.ctx, lt, p.Config.PageSize), nil
	})
	p.mu.Unlock()
	defer p.leave(key, f)

	select {
	case r := <-ch:
		if r.Shared {
			p.Log.Debug().Str("load_type", key).Msg("load coalesced")
		}
		return r.Val.(Result)
	case <-ctx.Done():
		return Result{Err: &FetchError{Kind: KindCanceled, LoadType: lt, Err: ctx.Err()}}
	}
}

// land unregisters f once its load has returned.
func (p *Pager) land(key string, f *flight) {
	p.mu.Lock()
	if p.flights[key] == f {
		delete(p.flights, key)
	}
	p.mu.Unlock()
}

func (p *Pager) leave(key string, f *flight) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if p.flights[key] == f {
		delete(p.flights, key)
	}
}

type loadResult struct {
	lt  LoadType
	res Result
}

// Session is one consumer's view of the paged breed list. All state is owned
// by a single goroutine; loads run one at a time.
type Session struct {
	p      *Pager
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	out     chan Snapshot
	access  chan int
	loads   chan LoadType
	retry   chan struct{}
	results chan loadResult

	// loop-owned
	limit      int
	items      []domain.BreedWithFavorite
	hasMore    bool
	states     LoadStates
	lastAccess int
	running    bool
	queued     []LoadType
	failed     *LoadType
	seq        uint64
	snap       Snapshot
	dirty      bool
}

// Open starts a session. It lives until Close is called or ctx is done.
func (p *Pager) Open(ctx context.Context) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		p:          p,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		out:        make(chan Snapshot),
		access:     make(chan int),
		loads:      make(chan LoadType),
		retry:      make(chan struct{}),
		results:    make(chan loadResult, 1),
		limit:      p.Config.PageSize,
		lastAccess: -1,
	}

	// Subscribe before the first read so no commit is missed.
	changes, unsubscribe := p.Source.Changes(cache.TableBreeds, cache.TableFavorites)
	openSessions.Inc()
	go s.run(changes, unsubscribe)
	return s
}

// Snapshots delivers the latest state. Intermediate snapshots may be skipped
// when the consumer is slow. The channel closes when the session ends.
func (s *Session) Snapshots() <-chan Snapshot { return s.out }

// Done is closed when the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Access signals that the consumer rendered item index. Near the tail this
// grows the window and, once the cache is exhausted, appends a page.
func (s *Session) Access(index int) {
	select {
	case s.access <- index:
	case <-s.done:
	}
}

// Refresh reloads from page 1.
func (s *Session) Refresh() { s.request(Refresh) }

// Retry re-issues the most recent failed load, if any.
func (s *Session) Retry() {
	select {
	case s.retry <- struct{}{}:
	case <-s.done:
	}
}

// Close stops the session, cancelling any in-flight load, and waits for the
// loop to exit.
func (s *Session) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Session) request(lt LoadType) {
	select {
	case s.loads <- lt:
	case <-s.done:
	}
}

func (s *Session) run(changes <-chan struct{}, unsubscribe func()) {
	defer openSessions.Dec()
	defer close(s.done)
	defer close(s.out)
	defer unsubscribe()

	s.reload()
	if s.p.Config.InitialRefresh {
		s.enqueue(Refresh)
	}
	s.publish()

	for {
		var send chan<- Snapshot
		if s.dirty {
			send = s.out
		}

		select {
		case <-s.ctx.Done():
			return
		case <-changes:
			s.reload()
			s.prefetch()
			s.publish()
		case i := <-s.access:
			s.lastAccess = i
			if s.prefetch() {
				s.publish()
			}
		case lt := <-s.loads:
			s.enqueue(lt)
			s.publish()
		case <-s.retry:
			if s.failed != nil {
				s.enqueue(*s.failed)
				s.publish()
			}
		case r := <-s.results:
			s.finish(r)
			s.publish()
		case send <- s.snap:
			s.dirty = false
		}
	}
}

// enqueue starts lt, or queues it behind the running load.
func (s *Session) enqueue(lt LoadType) {
	if s.running {
		for _, q := range s.queued {
			if q == lt {
				return
			}
		}
		s.queued = append(s.queued, lt)
		return
	}
	s.start(lt)
}

func (s *Session) start(lt LoadType) {
	s.running = true
	s.states.set(lt, LoadState{Status: Loading})

	ctx := s.ctx
	go func() {
		res := s.p.Load(ctx, lt)
		select {
		case s.results <- loadResult{lt: lt, res: res}:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) finish(r loadResult) {
	s.running = false

	if r.res.Err != nil {
		lt := r.lt
		s.failed = &lt
		s.states.set(r.lt, LoadState{Status: Failed, Err: r.res.Err})
		s.p.Log.Warn().Err(r.res.Err).Str("load_type", r.lt.String()).Msg("load failed")
	} else {
		if s.failed != nil && *s.failed == r.lt {
			s.failed = nil
		}
		s.states.set(r.lt, LoadState{Status: NotLoading, EndOfPaginationReached: r.res.EndOfPaginationReached})
		if r.lt == Refresh {
			// A new baseline: appends may proceed again unless page 1 was the last.
			s.states.Append = LoadState{Status: NotLoading, EndOfPaginationReached: r.res.EndOfPaginationReached}
			s.enqueue(Prepend)
		}
	}

	// The page is committed; read it before deciding what comes next.
	s.reload()

	if !s.running && len(s.queued) > 0 {
		next := s.queued[0]
		s.queued = s.queued[1:]
		s.start(next)
		return
	}
	s.prefetch()
}

// prefetch grows the window or appends while the last access is within
// PrefetchDistance of the tail. It reports whether state changed.
func (s *Session) prefetch() bool {
	changed := false
	for s.lastAccess >= 0 && s.lastAccess >= len(s.items)-s.p.Config.PrefetchDistance {
		if s.hasMore {
			s.limit += s.p.Config.PageSize
			if !s.reload() {
				return changed
			}
			changed = true
			continue
		}

		if s.running || s.states.Refresh.Status != NotLoading {
			return changed
		}
		if a := s.states.Append; a.Status != NotLoading || a.EndOfPaginationReached {
			return changed
		}
		s.enqueue(Append)
		return true
	}
	return changed
}

func (s *Session) reload() bool {
	w, err := s.p.Source.LoadWindow(s.ctx, 0, s.limit)
	if err != nil {
		if s.ctx.Err() == nil {
			s.p.Log.Warn().Err(err).Int("limit", s.limit).Msg("window reload failed")
		}
		return false
	}
	s.items = w.Items
	s.hasMore = w.NextOffset != nil
	return true
}

func (s *Session) publish() {
	s.seq++
	s.snap = Snapshot{Items: s.items, LoadStates: s.states, Seq: s.seq}
	s.dirty = true
}
