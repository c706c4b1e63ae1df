package store

import (
	"time"
)

// Lifecycle is the explicit project lifecycle state.
//
// Transitions are total: every (from, to) pair is either allowed or rejected
// with ErrInvalidTransition, replacing the old implicit enabled-flag dance.
type Lifecycle string

const (
	// LifecycleActive marks a live project visible to list/search and the
	// external artifact.
	LifecycleActive Lifecycle = "active"

	// LifecycleArchived marks a soft-deleted project. The row and its
	// history are retained and the state is reversible.
	LifecycleArchived Lifecycle = "archived"

	// LifecyclePurged marks permanent removal. It exists only as a
	// transition target; purged projects have no row.
	LifecyclePurged Lifecycle = "purged"
)

// transitions enumerates every allowed lifecycle edge.
var transitions = map[Lifecycle][]Lifecycle{
	LifecycleActive:   {LifecycleArchived, LifecyclePurged},
	LifecycleArchived: {LifecycleActive, LifecyclePurged},
	LifecyclePurged:   {},
}

// CanTransition reports whether moving from l to the target state is allowed.
func (l Lifecycle) CanTransition(to Lifecycle) bool {
	for _, t := range transitions[l] {
		if t == to {
			return true
		}
	}
	return false
}

// Project is a registered project directory and its evolving metadata.
// Identity is the UUID, authoritative and immutable once minted; the root
// path is an attribute with a uniqueness guard among active rows only.
type Project struct {
	UUID     string   `json:"uuid"`
	Name     string   `json:"name"`
	RootPath string   `json:"root_path"`
	Tags     []string `json:"tags"`

	// AI-derived fields, filled by the enrichment pipeline only when unset.
	AIName        string `json:"ai_name,omitempty"`
	AIDescription string `json:"ai_description,omitempty"`

	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`

	Favorite   bool       `json:"favorite"`
	LastOpened *time.Time `json:"last_opened,omitempty"`
	OpenCount  int        `json:"open_count"`

	DateAdded   time.Time `json:"date_added"`
	LastUpdated time.Time `json:"last_updated"`

	Enabled bool   `json:"enabled"`
	Color   string `json:"color"`
}

// State returns the project's lifecycle state.
func (p *Project) State() Lifecycle {
	if p.Enabled {
		return LifecycleActive
	}
	return LifecycleArchived
}

// Update is a partial project mutation. Nil fields are left untouched;
// last_updated is always stamped.
type Update struct {
	Name          *string
	RootPath      *string
	Tags          *[]string
	AIName        *string
	AIDescription *string
	Description   *string
	Notes         *string
	Favorite      *bool
	Color         *string
}

// TagMode selects how a multi-tag filter composes.
type TagMode int

const (
	// TagModeAny matches projects carrying at least one requested tag.
	TagModeAny TagMode = iota
	// TagModeAll matches projects carrying every requested tag.
	TagModeAll
)

// Filter narrows List results. All set criteria compose with logical AND;
// text matching is case-insensitive.
type Filter struct {
	// Query substring-matches against name, root path and notes.
	Query string

	// Tags restricts to projects matching the requested tag set per Mode.
	Tags []string
	Mode TagMode

	// FavoritesOnly keeps only favorite projects.
	FavoritesOnly bool

	// IncludeArchived also returns archived (soft-deleted) rows.
	IncludeArchived bool
}

// String pointer helpers for building Updates.

// Str returns a pointer to s, for Update literals.
func Str(s string) *string { return &s }

// Bool returns a pointer to b, for Update literals.
func Bool(b bool) *bool { return &b }

// TagList returns a pointer to a copy of names, for Update literals.
func TagList(names []string) *[]string {
	cp := make([]string, len(names))
	copy(cp, names)
	return &cp
}
