package remote

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// Measure is a value given in both unit systems.
type Measure struct {
	Imperial *string `json:"imperial"`
	Metric   *string `json:"metric"`
}

// Image is the breed's reference image as returned by the API.
type Image struct {
	ID     *string `json:"id"`
	Width  *int    `json:"width"`
	Height *int    `json:"height"`
	URL    *string `json:"url"`
}

// BreedResponse is one raw row of GET /breeds. Every field is optional on
// the wire.
type BreedResponse struct {
	ID               *int     `json:"id"`
	Name             *string  `json:"name"`
	Weight           *Measure `json:"weight"`
	Height           *Measure `json:"height"`
	BredFor          *string  `json:"bred_for"`
	BreedGroup       *string  `json:"breed_group"`
	LifeSpan         *string  `json:"life_span"`
	Temperament      *string  `json:"temperament"`
	Origin           *string  `json:"origin"`
	ReferenceImageID *string  `json:"reference_image_id"`
	Image            *Image   `json:"image"`
}

// ToBreed normalises the row into a cacheable Breed. It reports false when
// the row has no id; such rows cannot be cached or referenced by a cursor.
// Only metric measures are kept. A missing or blank name becomes
// domain.UnknownBreedName.
func (r BreedResponse) ToBreed() (domain.Breed, bool) {
	if r.ID == nil {
		return domain.Breed{}, false
	}

	name := norm.NFC.String(strings.TrimSpace(str(r.Name)))
	if name == "" {
		name = domain.UnknownBreedName
	}

	b := domain.Breed{
		ID:               *r.ID,
		Name:             name,
		Weight:           metric(r.Weight),
		Height:           metric(r.Height),
		BredFor:          str(r.BredFor),
		BreedGroup:       str(r.BreedGroup),
		Temperament:      str(r.Temperament),
		Origin:           str(r.Origin),
		LifeSpan:         str(r.LifeSpan),
		ReferenceImageID: str(r.ReferenceImageID),
	}
	if r.Image != nil {
		b.ImageURL = str(r.Image.URL)
	}
	return b, true
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func metric(m *Measure) string {
	if m == nil {
		return ""
	}
	return str(m.Metric)
}
