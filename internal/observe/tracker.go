// Package observe provides table-level change notification for the local
// cache. Writers call Notify with the tables a committed transaction touched;
// readers Subscribe to the tables their query reads and re-run it when
// signalled. Notifications are coalesced: a subscriber that has not yet
// drained its signal sees one pending wake-up, not one per write.
package observe

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tracker fans table invalidations out to subscribers.
type Tracker struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]*subscription
}

type subscription struct {
	tables map[string]struct{}
	ch     chan struct{}
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{subs: make(map[uint64]*subscription)}
}

// Subscribe registers interest in tables. The returned channel receives a
// signal after any Notify naming one of them. The cancel func removes the
// subscription; it is safe to call more than once.
func (t *Tracker) Subscribe(tables ...string) (<-chan struct{}, func()) {
	s := &subscription{
		tables: make(map[string]struct{}, len(tables)),
		ch:     make(chan struct{}, 1),
	}
	for _, tbl := range tables {
		s.tables[tbl] = struct{}{}
	}

	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = s
	t.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Notify signals every subscriber interested in at least one of tables.
// It never blocks.
func (t *Tracker) Notify(tables ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.subs {
		if !s.interested(tables) {
			continue
		}
		select {
		case s.ch <- struct{}{}:
		default: // already pending
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (t *Tracker) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (s *subscription) interested(tables []string) bool {
	for _, tbl := range tables {
		if _, ok := s.tables[tbl]; ok {
			return true
		}
	}
	return false
}

// Watch runs query once, then again after every invalidation of tables, and
// delivers results on the returned channel until ctx is done. Delivery has
// latest-value semantics: if the consumer falls behind, intermediate results
// are replaced by newer ones. Query errors are logged and the previous value
// stands. The channel is closed when ctx is cancelled.
func Watch[T any](ctx context.Context, t *Tracker, query func(context.Context) (T, error), tables ...string) <-chan T {
	// Subscribe before the first query so a write racing with it is not lost.
	notify, cancel := t.Subscribe(tables...)
	out := make(chan T)

	go func() {
		defer close(out)
		defer cancel()

		var (
			pending T
			has     bool
			dirty   = true
		)
		for {
			if dirty {
				dirty = false
				v, err := query(ctx)
				switch {
				case err == nil:
					pending, has = v, true
				case ctx.Err() != nil:
					return
				default:
					log.Warn().Err(err).Strs("tables", tables).Msg("watch query failed")
				}
			}

			var send chan<- T
			if has {
				send = out
			}
			select {
			case <-ctx.Done():
				return
			case <-notify:
				dirty = true
			case send <- pending:
				has = false
			}
		}
	}()

	return out
}
