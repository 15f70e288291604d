// Package paging fills the local breed cache from the remote catalog on
// demand and drives paged reads over it.
//
// The Mediator decides, for each load request (refresh, prepend, append),
// which page to fetch, normalises the rows, and writes breeds plus their
// pagination cursors in one transaction. The Pager/Session pair plays the
// part of a paging driver: it exposes the ordered merged view as a growing
// window and invokes the Mediator when the window reaches the end of the
// cached rows.
package paging

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/remote"
)

// LoadType is the kind of load requested by the paging driver.
type LoadType int

const (
	// Refresh reloads from the first page and resets the cursor baseline.
	Refresh LoadType = iota
	// Prepend would load before the first page; pagination here is
	// forward-only, so it always reports the end.
	Prepend
	// Append loads the page after the most recent cursor.
	Append
)

func (t LoadType) String() string {
	switch t {
	case Refresh:
		return "refresh"
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("LoadType(%d)", int(t))
	}
}

// ParseLoadType maps "refresh", "prepend" or "append" to a LoadType.
func ParseLoadType(s string) (LoadType, bool) {
	switch s {
	case "refresh":
		return Refresh, true
	case "prepend":
		return Prepend, true
	case "append":
		return Append, true
	}
	return 0, false
}

// Result is the terminal outcome of one Load. Exactly one of
// EndOfPaginationReached (success) or Err (failure) is meaningful.
type Result struct {
	EndOfPaginationReached bool
	Err                    error
}

// ErrorKind classifies a FetchError.
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindServer     ErrorKind = "server"
	KindDecode     ErrorKind = "decode"
	KindCacheRead  ErrorKind = "cache_read"
	KindCacheWrite ErrorKind = "cache_write"
	KindCanceled   ErrorKind = "canceled"
	KindPanic      ErrorKind = "panic"
	KindInvalid    ErrorKind = "invalid"
)

// FetchError is the error carried by a failed Result.
type FetchError struct {
	Kind     ErrorKind
	LoadType LoadType
	// Page is the page that was being loaded, 0 when not yet resolved.
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s page %d: %s: %v", e.LoadType, e.Page, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.LoadType, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher is the remote page source.
type Fetcher interface {
	FetchPage(ctx context.Context, pageSize, page int) ([]remote.BreedResponse, error)
}

// PageStore is the part of the cache the Mediator writes to.
type PageStore interface {
	// LastRemoteKey returns the most recent cursor, or (nil, nil).
	LastRemoteKey(ctx context.Context) (*domain.RemoteKey, error)
	// InsertPage writes breeds and keys atomically; resetKeys drops existing
	// cursors first in the same transaction.
	InsertPage(ctx context.Context, breeds []domain.Breed, keys []domain.RemoteKey, resetKeys bool) error
}

// Mediator coordinates page loads between the remote catalog and the cache.
// It holds no page data in memory. Calls for one paging session are expected
// to be sequential.
type Mediator struct {
	Store  PageStore
	Remote Fetcher

	// ReplaceOnRefresh wipes existing cursors in the refresh transaction so
	// page 1 becomes the only baseline. Breeds and favorites are never
	// deleted by a refresh.
	ReplaceOnRefresh bool

	Log    zerolog.Logger
	tracer trace.Tracer
}

// NewMediator returns a Mediator with replace-on-refresh enabled.
func NewMediator(store PageStore, fetcher Fetcher) *Mediator {
	return &Mediator{
		Store:            store,
		Remote:           fetcher,
		ReplaceOnRefresh: true,
		Log:              log.Logger.With().Str("component", "mediator").Logger(),
		tracer:           otel.Tracer("github.com/tbourn/go-dogbreeds/internal/paging"),
	}
}

// Load performs one load of the given type. It never panics and never
// returns without a terminal Result.
func (m *Mediator) Load(ctx context.Context, lt LoadType, pageSize int) (res Result) {
	start := time.Now()
	tracer := m.tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/tbourn/go-dogbreeds/internal/paging")
	}
	ctx, span := tracer.Start(ctx, "paging.Load", trace.WithAttributes(
		attribute.String("paging.load_type", lt.String()),
		attribute.Int("paging.page_size", pageSize),
	))

	defer func() {
		if r := recover(); r != nil {
			m.Log.Error().
				Str("load_type", lt.String()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("load panicked")
			res = Result{Err: &FetchError{Kind: KindPanic, LoadType: lt, Err: fmt.Errorf("%v", r)}}
		}

		outcome := outcomeOf(res)
		pageLoads.WithLabelValues(lt.String(), outcome).Inc()
		pageLoadDuration.WithLabelValues(lt.String()).Observe(time.Since(start).Seconds())

		span.SetAttributes(
			attribute.String("paging.outcome", outcome),
			attribute.Bool("paging.end_of_pagination", res.EndOfPaginationReached),
		)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.End()
	}()

	if pageSize <= 0 {
		return Result{Err: &FetchError{Kind: KindInvalid, LoadType: lt, Err: errors.New("page size must be positive")}}
	}

	var page int
	switch lt {
	case Refresh:
		page = 1
	case Prepend:
		return Result{EndOfPaginationReached: true}
	case Append:
		key, err := m.Store.LastRemoteKey(ctx)
		if err != nil {
			return Result{Err: &FetchError{Kind: KindCacheRead, LoadType: lt, Err: err}}
		}
		// No baseline yet, or the last fetch was terminal.
		if key == nil || key.NextKey == nil {
			return Result{EndOfPaginationReached: true}
		}
		page = *key.NextKey
	default:
		return Result{Err: &FetchError{Kind: KindInvalid, LoadType: lt, Err: fmt.Errorf("unknown load type %d", int(lt))}}
	}
	span.SetAttributes(attribute.Int("paging.page", page))

	rows, err := m.Remote.FetchPage(ctx, pageSize, page)
	if errors.Is(err, remote.ErrEmptyBody) {
		return Result{EndOfPaginationReached: true}
	}
	if err != nil {
		return Result{Err: &FetchError{Kind: classify(ctx, err), LoadType: lt, Page: page, Err: err}}
	}
	if len(rows) == 0 {
		return Result{EndOfPaginationReached: true}
	}

	breeds := make([]domain.Breed, 0, len(rows))
	for i, r := range rows {
		b, ok := r.ToBreed()
		if !ok {
			rowsDropped.Inc()
			m.Log.Debug().Int("page", page).Int("row", i).Msg("dropping breed without id")
			continue
		}
		breeds = append(breeds, b)
	}

	end := len(breeds) < pageSize
	keys := cursorsFor(breeds, page, end)

	resetKeys := lt == Refresh && m.ReplaceOnRefresh
	if err := m.Store.InsertPage(ctx, breeds, keys, resetKeys); err != nil {
		return Result{Err: &FetchError{Kind: KindCacheWrite, LoadType: lt, Page: page, Err: err}}
	}
	breedsUpserted.Add(float64(len(breeds)))

	m.Log.Debug().
		Str("load_type", lt.String()).
		Int("page", page).
		Int("rows", len(rows)).
		Int("stored", len(breeds)).
		Bool("end", end).
		Msg("page loaded")

	return Result{EndOfPaginationReached: end}
}

// cursorsFor builds one RemoteKey per breed. All keys of a page share the
// same prev/next pair.
func cursorsFor(breeds []domain.Breed, page int, end bool) []domain.RemoteKey {
	var prev, next *int
	if page > 1 {
		p := page - 1
		prev = &p
	}
	if !end {
		n := page + 1
		next = &n
	}

	keys := make([]domain.RemoteKey, len(breeds))
	for i, b := range breeds {
		keys[i] = domain.RemoteKey{ID: b.ID, PrevKey: prev, NextKey: next}
	}
	return keys
}

func classify(ctx context.Context, err error) ErrorKind {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var (
		se *remote.ServerError
		de *remote.DecodeError
	)
	switch {
	case errors.As(err, &se):
		return KindServer
	case errors.As(err, &de):
		return KindDecode
	default:
		return KindTransport
	}
}

func outcomeOf(res Result) string {
	switch {
	case res.Err != nil:
		return "error"
	case res.EndOfPaginationReached:
		return "end"
	default:
		return "loaded"
	}
}
