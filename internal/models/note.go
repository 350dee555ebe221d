// Package models defines the domain types for Quire.
package models

import (
	"fmt"
	"time"
)

// Note is a single note as seen by the client core. Content is an opaque
// markup blob (usually HTML) and is never interpreted.
type Note struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// User is an account known to the notes service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SortOption selects the order in which the service returns notes.
type SortOption string

// Supported sort options.
const (
	SortNewest SortOption = "newest"
	SortOldest SortOption = "oldest"
	SortTitle  SortOption = "title"
)

// SortOptions lists every valid option in display order.
var SortOptions = []SortOption{SortNewest, SortOldest, SortTitle}

// ParseSortOption validates s. The empty string maps to SortNewest.
func ParseSortOption(s string) (SortOption, error) {
	switch SortOption(s) {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortTitle:
		return SortOption(s), nil
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// Label returns the human-readable name used by list views.
func (s SortOption) Label() string {
	switch s {
	case SortOldest:
		return "Oldest First"
	case SortTitle:
		return "Title A-Z"
	default:
		return "Newest First"
	}
}

// Next cycles to the following option, wrapping around.
func (s SortOption) Next() SortOption {
	for i, o := range SortOptions {
		if o == s {
			return SortOptions[(i+1)%len(SortOptions)]
		}
	}
	return SortNewest
}
