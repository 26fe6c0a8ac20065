package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"tasksync/internal/app"
	"tasksync/internal/service"
	"tasksync/internal/view"
)

// ItemRef represents a parsed item reference.
type ItemRef struct {
	Num int    // 1-based position in the listed order, 0 if ID is set
	ID  string // literal item id from an @<id> reference
}

// ErrItemRefRequired indicates no item reference was provided.
var ErrItemRefRequired = errors.New("item reference required")

// ParseItemRef parses an item reference from args.
//
// Parsing rules:
//  1. If first arg is all digits → position in the listed order
//  2. If first arg is @<id> → literal id
//  3. Otherwise → error: invalid item reference: <ref>
func ParseItemRef(args []string) (ItemRef, error) {
	if len(args) == 0 {
		return ItemRef{}, ErrItemRefRequired
	}

	first := args[0]

	if isAllDigits(first) {
		num, err := strconv.Atoi(first)
		if err != nil {
			return ItemRef{}, fmt.Errorf("invalid item reference: %s", first)
		}
		return ItemRef{Num: num}, nil
	}

	if id, ok := strings.CutPrefix(first, "@"); ok && strings.TrimSpace(id) != "" {
		return ItemRef{ID: id}, nil
	}

	return ItemRef{}, fmt.Errorf("invalid item reference: %s", first)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ResolveItemRef finds the referenced item in the cache.
// Numbers count positions in the view for filter, as printed by list.
func ResolveItemRef(a *app.App, ref ItemRef, filter view.Filter) (service.Item, error) {
	if ref.ID != "" {
		item, ok := a.Cache.Get().Find(ref.ID)
		if !ok {
			return service.Item{}, fmt.Errorf("%w: %s", service.ErrNotFound, ref.ID)
		}
		return item, nil
	}

	items := a.View(filter)
	if ref.Num < 1 || ref.Num > len(items) {
		return service.Item{}, fmt.Errorf("%w: item number out of range: %d", service.ErrNotFound, ref.Num)
	}
	return items[ref.Num-1], nil
}
