package paging

import (
	"encoding/json"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

// LoadStatus is the progress of one load type within a session.
type LoadStatus int

const (
	NotLoading LoadStatus = iota
	Loading
	Failed
)

func (s LoadStatus) String() string {
	switch s {
	case Loading:
		return "loading"
	case Failed:
		return "error"
	default:
		return "not_loading"
	}
}

// MarshalText encodes the status as its name.
func (s LoadStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// LoadState describes one load type. EndOfPaginationReached is only
// meaningful when Status is NotLoading; Err only when it is Failed.
type LoadState struct {
	Status                 LoadStatus
	EndOfPaginationReached bool
	Err                    error
}

type loadStateJSON struct {
	Status                 LoadStatus `json:"status"`
	EndOfPaginationReached bool       `json:"end_of_pagination_reached"`
	Error                  string     `json:"error,omitempty"`
}

// MarshalJSON renders Err as a string.
func (s LoadState) MarshalJSON() ([]byte, error) {
	out := loadStateJSON{Status: s.Status, EndOfPaginationReached: s.EndOfPaginationReached}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}

// LoadStates groups the state of the three load types.
type LoadStates struct {
	Refresh LoadState `json:"refresh"`
	Prepend LoadState `json:"prepend"`
	Append  LoadState `json:"append"`
}

func (s *LoadStates) get(lt LoadType) LoadState {
	switch lt {
	case Refresh:
		return s.Refresh
	case Prepend:
		return s.Prepend
	default:
		return s.Append
	}
}

func (s *LoadStates) set(lt LoadType, st LoadState) {
	switch lt {
	case Refresh:
		s.Refresh = st
	case Prepend:
		s.Prepend = st
	default:
		s.Append = st
	}
}

// Snapshot is what a session consumer renders: the cached window plus the
// load states. Items is never mutated after publication.
type Snapshot struct {
	Items      []domain.BreedWithFavorite `json:"items"`
	LoadStates LoadStates                 `json:"load_states"`
	// Seq increases with every published snapshot of a session.
	Seq uint64 `json:"seq"`
}
