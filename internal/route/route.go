// Package route splits the items of the selected recommendation options
// between the shopping list (items the user lacks) and the wardrobe
// (items the user owns).
package route

import (
	"strings"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// Route walks the selected options in A, B order and each option's
// categories in fixed order. Not-applicable values and the summary are
// skipped. Items whose category is in missing go to shopping, the rest to
// wardrobe. Each output list holds a given (category, description) at most
// once; the two lists never share one because the category decides the side.
func Route(selected []outfit.Option, pair outfit.Pair, missing outfit.CategorySet, meta outfit.GroupMeta) (shopping, wardrobe []outfit.CategoryItem) {
	shopping = []outfit.CategoryItem{}
	wardrobe = []outfit.CategoryItem{}
	seenShopping := make(map[string]bool)
	seenWardrobe := make(map[string]bool)

	walk(selected, pair, meta, func(item outfit.CategoryItem) {
		key := item.Key()
		if missing.Has(item.Category) {
			if !seenShopping[key] {
				seenShopping[key] = true
				shopping = append(shopping, item)
			}
			return
		}
		if !seenWardrobe[key] {
			seenWardrobe[key] = true
			wardrobe = append(wardrobe, item)
		}
	})
	return shopping, wardrobe
}

// Collect returns every applicable item of the selected options as a single
// deduplicated list, for adding a whole outfit to the wardrobe.
func Collect(selected []outfit.Option, pair outfit.Pair, meta outfit.GroupMeta) []outfit.CategoryItem {
	_, all := Route(selected, pair, nil, meta)
	return all
}

func walk(selected []outfit.Option, pair outfit.Pair, meta outfit.GroupMeta, emit func(outfit.CategoryItem)) {
	for _, opt := range ordered(selected) {
		rec, ok := pair.Option(opt)
		if !ok {
			continue
		}
		for _, c := range outfit.Categories() {
			v := rec.Item(c)
			if outfit.IsNotApplicable(v) {
				continue
			}
			emit(outfit.CategoryItem{
				Category:    c,
				Description: strings.TrimSpace(v),
				GroupMeta:   meta,
			})
		}
	}
}

// ordered returns the distinct options of selected in A, B order.
func ordered(selected []outfit.Option) []outfit.Option {
	var s outfit.Selection
	for _, o := range selected {
		s.Set(o, true)
	}
	return s.Options()
}
