// Streaming handlers.
//
// These endpoints push live cache state as Server-Sent Events:
//   - GET /breeds/stream?prefetch=N   (paging session snapshots)
//   - GET /breeds/{id}/stream         (one breed; null while absent)
//   - GET /favorites/stream           (favorites list)
//
// Every stream ends when the client disconnects; the underlying watch or
// paging session is released with the request context.
package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dogbreeds/internal/utils"
)

// streamEvents pumps values from ch to the client as SSE events until ch
// closes or the client goes away.
func streamEvents[T any](c *gin.Context, event string, ch <-chan T) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	done := c.Request.Context().Done()
	c.Stream(func(io.Writer) bool {
		select {
		case v, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(event, v)
			return true
		case <-done:
			return false
		}
	})
}

// StreamBreeds opens a paging session and streams its snapshots. A positive
// prefetch asks the session to fill the window, appending remote pages as
// needed, until that many items are cached or the catalog ends.
func (h *Handlers) StreamBreeds(c *gin.Context) {
	prefetch := utils.Clamp(utils.AtoiDefault(c.Query("prefetch"), 0), 0, h.MaxPrefetch)

	sess := h.breeds.PagedBreeds(c.Request.Context())
	defer sess.Close()
	if prefetch > 0 {
		sess.Access(prefetch - 1)
	}
	streamEvents(c, "snapshot", sess.Snapshots())
}

// StreamBreed streams one breed as it changes.
func (h *Handlers) StreamBreed(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	streamEvents(c, "breed", h.breeds.BreedByID(c.Request.Context(), id))
}

// StreamFavorites streams the favorites list as it changes.
func (h *Handlers) StreamFavorites(c *gin.Context) {
	streamEvents(c, "favorites", h.favs.Favorites(c.Request.Context()))
}
