// Package service defines the backend-agnostic types and interface for item operations.
package service

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the ISO-8601 form used for CreatedAt (millisecond precision, UTC).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t the way CreatedAt is stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a CreatedAt value. Any RFC 3339 timestamp is accepted.
func ParseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Collection names a remote item collection.
type Collection string

const (
	Tasks   Collection = "tasks"
	Stories Collection = "stories"
)

// ParseCollection parses a collection name (case-insensitive, trimmed).
func ParseCollection(s string) (Collection, error) {
	switch Collection(strings.ToLower(strings.TrimSpace(s))) {
	case Tasks:
		return Tasks, nil
	case Stories:
		return Stories, nil
	}
	return "", fmt.Errorf("unknown collection: %s", s)
}

// Singular returns the display noun for one item of the collection.
func (c Collection) Singular() string {
	if c == Stories {
		return "story"
	}
	return "task"
}

// Priority is stored as a plain string because the remote store only accepts strings.
type Priority string

const (
	PriorityDefault Priority = "default"
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
)

// Valid reports whether p is one of the known priorities, including the default sentinel.
func (p Priority) Valid() bool {
	switch p {
	case PriorityDefault, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Next returns the priority after p in the order default, low, medium, high,
// wrapping back to default. Unknown values restart at low.
func (p Priority) Next() Priority {
	switch p {
	case PriorityDefault, "":
		return PriorityLow
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	case PriorityHigh:
		return PriorityDefault
	}
	return PriorityLow
}

// PlaceholderPrefix starts every locally generated id. Server ids never carry it.
const PlaceholderPrefix = "tmp-"

// IsPlaceholder reports whether id was generated locally for an unconfirmed create.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// Item represents a single task or story.
// Capability, Role and Benefit are only used by stories.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Author      string   `json:"author"`
	Completed   bool     `json:"completed"`
	CreatedAt   string   `json:"createdAt"` // ISO-8601

	Capability string `json:"capability,omitempty"`
	Role       string `json:"role,omitempty"`
	Benefit    string `json:"benefit,omitempty"`
}

// Draft holds the user-supplied fields of an item that does not exist yet.
type Draft struct {
	Title       string
	Description string
	Priority    Priority
	Author      string

	Capability string
	Role       string
	Benefit    string
}

// Empty reports whether the draft carries nothing worth submitting:
// blank title and description and the default priority.
func (d Draft) Empty() bool {
	p := d.Priority
	if p == "" {
		p = PriorityDefault
	}
	return strings.TrimSpace(d.Title) == "" &&
		strings.TrimSpace(d.Description) == "" &&
		p == PriorityDefault
}

// Snapshot is the complete ordered collection of items considered current.
type Snapshot []Item

// Clone returns an independent copy. A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// IndexOf returns the position of the item with the given id, or -1.
func (s Snapshot) IndexOf(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the item with the given id.
func (s Snapshot) Find(id string) (Item, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s[i], true
	}
	return Item{}, false
}

// Equal reports whether both snapshots hold the same items in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
