// Favorite HTTP handlers.
//
//   - GET    /favorites        (list, name ordered, capped)
//   - PUT    /favorites/{id}   (copy from the breed cache, or store the body)
//   - DELETE /favorites/{id}
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dogbreeds/internal/domain"
	"github.com/tbourn/go-dogbreeds/internal/services"
)

// FavoriteRequest is the optional JSON payload of PUT /favorites/{id}.
// When the request has no body the cached breed is copied instead.
type FavoriteRequest struct {
	Name             string `json:"name" binding:"max=255"`
	Weight           string `json:"weight"`
	Height           string `json:"height"`
	BredFor          string `json:"bred_for"`
	BreedGroup       string `json:"breed_group"`
	Temperament      string `json:"temperament"`
	Origin           string `json:"origin"`
	LifeSpan         string `json:"life_span"`
	ReferenceImageID string `json:"reference_image_id"`
	ImageURL         string `json:"image_url"`
}

// favorite builds the stored row. A blank name falls back to
// domain.UnknownBreedName.
func (r FavoriteRequest) favorite(id int) domain.Favorite {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = domain.UnknownBreedName
	}
	return domain.Favorite{
		ID:               id,
		Name:             name,
		Weight:           r.Weight,
		Height:           r.Height,
		BredFor:          r.BredFor,
		BreedGroup:       r.BreedGroup,
		Temperament:      r.Temperament,
		Origin:           r.Origin,
		LifeSpan:         r.LifeSpan,
		ReferenceImageID: r.ReferenceImageID,
		ImageURL:         r.ImageURL,
	}
}

// ListFavoritesResponse wraps the favorites list.
type ListFavoritesResponse struct {
	Favorites []domain.Favorite `json:"favorites"`
}

// ListFavorites returns all favorites ordered by name.
func (h *Handlers) ListFavorites(c *gin.Context) {
	favs, err := h.favs.ListFavorites(c.Request.Context())
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeListFailed, "could not read the cache", err)
		return
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}
	ok(c, http.StatusOK, ListFavoritesResponse{Favorites: favs})
}

// PutFavorite marks a breed as favorite. Repeating the call replaces the
// stored copy.
func (h *Handlers) PutFavorite(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()

	var (
		fav *domain.Favorite
		err error
	)
	if c.Request.ContentLength == 0 {
		fav, err = h.favs.FavoriteBreed(ctx, id)
	} else {
		var req FavoriteRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
		fav, err = h.favs.SaveFavorite(ctx, req.favorite(id))
	}

	switch {
	case errors.Is(err, services.ErrBreedNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "breed not cached; send the favorite in the body")
	case errors.Is(err, services.ErrInvalidID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case err != nil:
		failErr(c, http.StatusInternalServerError, ErrCodeSaveFailed, "could not save favorite", err)
	default:
		ok(c, http.StatusOK, fav)
	}
}

// DeleteFavorite removes a favorite.
func (h *Handlers) DeleteFavorite(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	err := h.favs.RemoveFavorite(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrFavoriteNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "favorite not found")
	case err != nil:
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "internal error", err)
	default:
		noContent(c)
	}
}
