// Package view derives the displayed item sequence from a cache snapshot.
package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"tasksync/internal/service"
)

// Filter selects which items are shown.
type Filter string

const (
	All        Filter = "all"
	Mine       Filter = "mine"
	Completed  Filter = "completed"
	Incomplete Filter = "incomplete"
)

// Filters lists every mode in display order.
var Filters = []Filter{All, Mine, Completed, Incomplete}

// ParseFilter parses a filter name. "my-tasks" and "my-stories" are accepted for Mine.
// An empty string means All.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "mine", "my-tasks", "my-stories":
		return Mine, nil
	case "completed":
		return Completed, nil
	case "incomplete":
		return Incomplete, nil
	}
	return "", fmt.Errorf("unknown filter: %s", s)
}

// Next returns the filter after f, wrapping around.
func (f Filter) Next() Filter {
	i := slices.Index(Filters, f)
	return Filters[(i+1)%len(Filters)]
}

// Match reports whether item passes f for the given user.
func (f Filter) Match(item service.Item, user string) bool {
	switch f {
	case Mine:
		return item.Author == user
	case Completed:
		return item.Completed
	case Incomplete:
		return !item.Completed
	default:
		return true
	}
}

// Apply returns the items of snap that pass filter, newest first.
// Items with equal timestamps keep their snapshot order. snap is not modified.
func Apply(snap service.Snapshot, filter Filter, user string) []service.Item {
	type keyed struct {
		item service.Item
		at   time.Time
	}

	rows := make([]keyed, 0, len(snap))
	for _, it := range snap {
		if !filter.Match(it, user) {
			continue
		}
		// Unparseable timestamps keep the zero time and sort last.
		at, _ := service.ParseTime(it.CreatedAt)
		rows = append(rows, keyed{item: it, at: at})
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		return b.at.Compare(a.at)
	})

	out := make([]service.Item, len(rows))
	for i, r := range rows {
		out[i] = r.item
	}
	return out
}
