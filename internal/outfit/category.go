// Package outfit defines the domain vocabulary shared by the classifier,
// the item router and the refinement controller: clothing categories,
// recommendation options and pairs, and the items routed to the wardrobe
// or the shopping list.
package outfit

import (
	"fmt"
	"sort"
	"strings"
)

// Category is one slot of an outfit. The set is closed.
type Category string

const (
	Outer   Category = "outer"
	Top     Category = "top"
	Bottom  Category = "bottom"
	Shoes   Category = "shoes"
	Bag     Category = "bag"
	Belt    Category = "belt"
	Hat     Category = "hat"
	Jewelry Category = "jewelry"
)

// categoryOrder is the fixed iteration order used wherever output must be
// deterministic (routing, prompts, sorted sets).
var categoryOrder = []Category{Outer, Top, Bottom, Shoes, Bag, Belt, Hat, Jewelry}

// Categories returns every category in fixed order. The returned slice is a copy.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalizes s and returns the matching category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func (c Category) rank() int {
	for i, known := range categoryOrder {
		if c == known {
			return i
		}
	}
	return len(categoryOrder)
}

// CategorySet is an unordered set of categories. The zero value is not
// usable; create one with NewCategorySet.
type CategorySet map[Category]struct{}

// NewCategorySet returns a set holding cs.
func NewCategorySet(cs ...Category) CategorySet {
	s := make(CategorySet, len(cs))
	for _, c := range cs {
		s.Add(c)
	}
	return s
}

// Add inserts c. Unknown categories are ignored.
func (s CategorySet) Add(c Category) {
	if c.Valid() {
		s[c] = struct{}{}
	}
}

// Has reports whether c is in the set. A nil set holds nothing.
func (s CategorySet) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// Len returns the number of categories in the set.
func (s CategorySet) Len() int { return len(s) }

// Sorted returns the members in fixed category order.
func (s CategorySet) Sorted() []Category {
	out := make([]Category, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank() < out[j].rank() })
	return out
}

// Strings returns the sorted members as plain strings, for JSON and logs.
func (s CategorySet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, c := range sorted {
		out[i] = string(c)
	}
	return out
}
