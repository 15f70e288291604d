// Package services defines the application operations over the breed
// catalog. This file centralizes service-level error values so that they can
// be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrBreedNotFound indicates that the breed is not in the local cache.
	ErrBreedNotFound = errors.New("breed not found")

	// ErrFavoriteNotFound indicates that no favorite exists with the id.
	ErrFavoriteNotFound = errors.New("favorite not found")

	// ErrInvalidID is returned for non-positive breed ids.
	ErrInvalidID = errors.New("id must be a positive integer")

	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = errors.New("query is empty")
)
