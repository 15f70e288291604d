// Breed HTTP handlers.
//
// This file exposes REST endpoints for the breed catalog:
//   - GET    /breeds               (cached window, paginated, ETag support)
//   - POST   /breeds/refresh       (reload page 1 from the remote catalog)
//   - POST   /breeds/append        (load the next remote page)
//   - GET    /breeds/search        (offline search)
//   - GET    /breeds/{id}          (single breed with favorite flag)
//   - GET    /status               (connectivity and cache counts)
//   - DELETE /cache                (drop cached breeds, keep favorites)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dogbreeds/internal/cache"
	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/paging"
	"github.com/tbourn/go-dogbreeds/internal/search"
	"github.com/tbourn/go-dogbreeds/internal/services"
	"github.com/tbourn/go-dogbreeds/internal/utils"
)

//
// Service contracts (context-aware)
//

// BreedService defines the catalog operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type BreedService interface {
	// ListPage returns one window of cached breeds.
	ListPage(ctx context.Context, page, pageSize int) (cache.Window, error)
	// GetBreed returns one cached breed with its favorite flag.
	GetBreed(ctx context.Context, id int) (*domain.BreedWithFavorite, error)
	// Refresh reloads page 1 from the remote catalog.
	Refresh(ctx context.Context) paging.Result
	// LoadMore loads the page after the latest cursor.
	LoadMore(ctx context.Context) paging.Result
	// Search ranks cached breeds against q.
	Search(ctx context.Context, q string, k int) ([]search.Result, error)
	// Status reports connectivity and cache counts.
	Status(ctx context.Context) (services.Status, error)
	// CacheStats reports cache counts only; used for ETags.
	CacheStats(ctx context.Context) (cache.Stats, error)
	// Clear drops cached breeds and cursors.
	Clear(ctx context.Context) error

	// PagedBreeds opens a paging session for streaming.
	PagedBreeds(ctx context.Context) *paging.Session
	// BreedByID streams one breed.
	BreedByID(ctx context.Context, id int) <-chan *domain.BreedWithFavorite
}

// FavoriteService defines favorite list operations.
type FavoriteService interface {
	ListFavorites(ctx context.Context) ([]domain.Favorite, error)
	FavoriteBreed(ctx context.Context, id int) (*domain.Favorite, error)
	SaveFavorite(ctx context.Context, f domain.Favorite) (*domain.Favorite, error)
	RemoveFavorite(ctx context.Context, id int) error
	Favorites(ctx context.Context) <-chan []domain.Favorite
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for breeds and favorites.
type Handlers struct {
	breeds BreedService
	favs   FavoriteService

	// DefaultPageSize applies when page_size is absent.
	DefaultPageSize int
	// MaxPrefetch caps the prefetch parameter of the stream endpoint.
	MaxPrefetch int
}

// New constructs and returns a Handlers instance bound to the given services.
func New(breeds BreedService, favs FavoriteService) *Handlers {
	return &Handlers{breeds: breeds, favs: favs, DefaultPageSize: 20, MaxPrefetch: 500}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ListBreedsResponse wraps a window of cached breeds.
type ListBreedsResponse struct {
	Breeds     []domain.BreedWithFavorite `json:"breeds"`
	Pagination Pagination                 `json:"pagination"`
}

// LoadResponse is the outcome of a successful remote page load.
type LoadResponse struct {
	LoadType               string `json:"load_type"`
	EndOfPaginationReached bool   `json:"end_of_pagination_reached"`
}

// SearchResponse wraps ranked search hits.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params.
func (h *Handlers) clampPagination(c *gin.Context) (page, pageSize int) {
	const maxPageSize = 100
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), h.DefaultPageSize), 1, maxPageSize)
	return
}

// pathID parses the :id parameter, failing the request when it is invalid.
func pathID(c *gin.Context) (int, bool) {
	id, ok := utils.PositiveID(c.Param("id"))
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
	}
	return id, ok
}

// statsETag derives a weak ETag from cache counts and timestamps; it changes
// whenever breeds or favorites are written.
func statsETag(prefix string, st cache.Stats, extra ...int) string {
	var bt, ft int64
	if st.LatestBreed != nil {
		bt = st.LatestBreed.UnixNano()
	}
	if st.LatestFavorite != nil {
		ft = st.LatestFavorite.UnixNano()
	}
	tag := fmt.Sprintf("%s:%d:%d:%d:%d", prefix, st.Breeds, bt, st.Favorites, ft)
	for _, e := range extra {
		tag += fmt.Sprintf(":%d", e)
	}
	return `W/"` + tag + `"`
}

// notModified sets ETag and reports whether the client copy is current.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// failLoad maps a failed page load to an HTTP error. Transport and server
// failures are flagged retryable; a malformed upstream payload is not.
func failLoad(c *gin.Context, err error) {
	var fe *paging.FetchError
	if !errors.As(err, &fe) {
		failErr(c, http.StatusInternalServerError, ErrCodeLoadFailed, "page load failed", err)
		return
	}
	switch fe.Kind {
	case paging.KindTransport, paging.KindServer:
		abort(c, http.StatusBadGateway, ErrorResponse{Code: ErrCodeUpstreamFailed, Message: fe.Error(), Retryable: true}, fe)
	case paging.KindDecode:
		abort(c, http.StatusBadGateway, ErrorResponse{Code: ErrCodeUpstreamFailed, Message: fe.Error()}, fe)
	case paging.KindCanceled:
		abort(c, http.StatusServiceUnavailable, ErrorResponse{Code: ErrCodeUnavailable, Message: fe.Error(), Retryable: true}, fe)
	default:
		abort(c, http.StatusInternalServerError, ErrorResponse{Code: ErrCodeLoadFailed, Message: "page load failed"}, fe)
	}
}

//
// Handlers
//

// ListBreeds returns one page of the cached catalog. It never calls the
// remote API. Supports weak ETag via If-None-Match and may return 304.
func (h *Handlers) ListBreeds(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := h.clampPagination(c)

	st, err := h.breeds.CacheStats(ctx)
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeListFailed, "could not read the cache", err)
		return
	}
	if notModified(c, statsETag("breeds", st, page, pageSize)) {
		return
	}

	w, err := h.breeds.ListPage(ctx, page, pageSize)
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeListFailed, "could not read the cache", err)
		return
	}

	items := w.Items
	if items == nil {
		items = []domain.BreedWithFavorite{}
	}
	totalPages := int((st.Breeds + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListBreedsResponse{
		Breeds: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      st.Breeds,
			TotalPages: totalPages,
			HasNext:    w.NextOffset != nil,
			HasPrev:    w.PrevOffset != nil,
		},
	})
}

// RefreshBreeds reloads page 1 from the remote catalog into the cache.
func (h *Handlers) RefreshBreeds(c *gin.Context) {
	res := h.breeds.Refresh(c.Request.Context())
	if res.Err != nil {
		failLoad(c, res.Err)
		return
	}
	ok(c, http.StatusOK, LoadResponse{LoadType: paging.Refresh.String(), EndOfPaginationReached: res.EndOfPaginationReached})
}

// AppendBreeds loads the next remote page into the cache.
func (h *Handlers) AppendBreeds(c *gin.Context) {
	res := h.breeds.LoadMore(c.Request.Context())
	if res.Err != nil {
		failLoad(c, res.Err)
		return
	}
	ok(c, http.StatusOK, LoadResponse{LoadType: paging.Append.String(), EndOfPaginationReached: res.EndOfPaginationReached})
}

// SearchBreeds ranks cached breeds against ?q. ?k caps the result count.
func (h *Handlers) SearchBreeds(c *gin.Context) {
	q := c.Query("q")
	k := utils.Clamp(utils.AtoiDefault(c.Query("k"), 10), 1, 50)

	res, err := h.breeds.Search(c.Request.Context(), q, k)
	if errors.Is(err, services.ErrEmptyQuery) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q is required")
		return
	}
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "internal error", err)
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Results: res})
}

// GetBreed returns one cached breed.
func (h *Handlers) GetBreed(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	b, err := h.breeds.GetBreed(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrBreedNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "breed not found")
	case err != nil:
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "internal error", err)
	default:
		ok(c, http.StatusOK, b)
	}
}

// Status reports connectivity and cache counts.
func (h *Handlers) Status(c *gin.Context) {
	st, err := h.breeds.Status(c.Request.Context())
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "internal error", err)
		return
	}
	ok(c, http.StatusOK, st)
}

// ClearCache drops cached breeds and cursors. Favorites are kept.
func (h *Handlers) ClearCache(c *gin.Context) {
	if err := h.breeds.Clear(c.Request.Context()); err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "internal error", err)
		return
	}
	noContent(c)
}
