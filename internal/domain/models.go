// Package domain defines the persistence models for the breed catalog:
// cached breeds, user favorites and pagination cursors. These types are
// mapped with GORM and shared across the repository, cache, paging and
// service layers.
package domain

import "time"

// UnknownBreedName is stored when the remote source omits a breed name.
const UnknownBreedName = "Unknown Breed"

// Breed is one cached dog breed. Rows are keyed by the externally assigned
// ID and are fully replaced (never merged field-by-field) on re-fetch.
//
// Fields:
//   - ID: stable identifier assigned by the remote catalog.
//   - Name: display name; ordered window queries sort on (name, id).
//   - Weight / Height: metric ranges only (imperial is discarded on ingest).
//   - ImageURL: resolved image location, empty when the source has none.
//   - CachedAt: ingest timestamp, used for cache statistics and ETags.
type Breed struct {
	ID               int    `json:"id"                           gorm:"primaryKey;autoIncrement:false;index:idx_breeds_name_id,priority:2"`
	Name             string `json:"name"                         gorm:"type:varchar(255);not null;index:idx_breeds_name_id,priority:1"`
	Weight           string `json:"weight,omitempty"             gorm:"type:varchar(64)"`
	Height           string `json:"height,omitempty"             gorm:"type:varchar(64)"`
	BredFor          string `json:"bred_for,omitempty"           gorm:"type:text"`
	BreedGroup       string `json:"breed_group,omitempty"        gorm:"type:varchar(64)"`
	Temperament      string `json:"temperament,omitempty"        gorm:"type:text"`
	Origin           string `json:"origin,omitempty"             gorm:"type:text"`
	LifeSpan         string `json:"life_span,omitempty"          gorm:"type:varchar(64)"`
	ReferenceImageID string `json:"reference_image_id,omitempty" gorm:"type:varchar(64)"`
	ImageURL         string `json:"image_url,omitempty"          gorm:"type:text"`

	// CachedAt is when this row was last written from a remote page.
	CachedAt time.Time `json:"cached_at" gorm:"index"`
}

// TableName returns the database table name for Breed.
func (Breed) TableName() string { return "breeds" }

// Favorite is a user-curated copy of a breed. It carries the same ID as the
// breed it was copied from but has no foreign key to the breeds table, so
// favorites survive a full breed-cache reset.
type Favorite struct {
	ID               int       `json:"id"                           gorm:"primaryKey;autoIncrement:false"`
	Name             string    `json:"name"                         gorm:"type:varchar(255);not null;index"`
	Weight           string    `json:"weight,omitempty"             gorm:"type:varchar(64)"`
	Height           string    `json:"height,omitempty"             gorm:"type:varchar(64)"`
	BredFor          string    `json:"bred_for,omitempty"           gorm:"type:text"`
	BreedGroup       string    `json:"breed_group,omitempty"        gorm:"type:varchar(64)"`
	Temperament      string    `json:"temperament,omitempty"        gorm:"type:text"`
	Origin           string    `json:"origin,omitempty"             gorm:"type:text"`
	LifeSpan         string    `json:"life_span,omitempty"          gorm:"type:varchar(64)"`
	ReferenceImageID string    `json:"reference_image_id,omitempty" gorm:"type:varchar(64)"`
	ImageURL         string    `json:"image_url,omitempty"          gorm:"type:text"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }

// FavoriteFrom copies the descriptive fields of b into a new Favorite.
func FavoriteFrom(b Breed) Favorite {
	return Favorite{
		ID:               b.ID,
		Name:             b.Name,
		Weight:           b.Weight,
		Height:           b.Height,
		BredFor:          b.BredFor,
		BreedGroup:       b.BreedGroup,
		Temperament:      b.Temperament,
		Origin:           b.Origin,
		LifeSpan:         b.LifeSpan,
		ReferenceImageID: b.ReferenceImageID,
		ImageURL:         b.ImageURL,
	}
}

// RemoteKey is a pagination cursor written for every breed id of a fetched
// page. All rows from one fetch share the same PrevKey/NextKey pair; a nil
// NextKey marks the last page.
type RemoteKey struct {
	ID      int  `json:"id"       gorm:"primaryKey;autoIncrement:false"`
	PrevKey *int `json:"prev_key"`
	NextKey *int `json:"next_key"`
}

// TableName returns the database table name for RemoteKey.
func (RemoteKey) TableName() string { return "remote_keys" }

// BreedWithFavorite is the merged read model: a cached breed annotated with
// whether a favorite row with the same id exists at query time. It is never
// stored.
type BreedWithFavorite struct {
	Breed
	IsFavorite bool `json:"is_favorite" gorm:"column:is_favorite"`
}

// SchemaMeta records the schema version the local database was created
// with. A mismatch triggers a destructive rebuild of all cache tables.
type SchemaMeta struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	Version   int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for SchemaMeta.
func (SchemaMeta) TableName() string { return "schema_meta" }
