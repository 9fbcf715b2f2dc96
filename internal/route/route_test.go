package route

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fpang/ai-stylist/internal/outfit"
)

var meta = outfit.GroupMeta{ID: "1700000000000", Name: "casual office", Date: "2024-05-01", Weather: "clear, 21°C", TPO: "office"}

func descriptions(items []outfit.CategoryItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it.Category) + ":" + it.Description
	}
	return out
}

func TestRouteSingleOptionNoMissing(t *testing.T) {
	pair := outfit.Pair{A: outfit.Recommendation{Summary: "casual", Top: "white tee", Belt: "N/A"}}

	shopping, wardrobe := Route([]outfit.Option{outfit.OptionA}, pair, outfit.NewCategorySet(), meta)

	require.Empty(t, shopping)
	require.Equal(t, []string{"top:white tee"}, descriptions(wardrobe))
	require.Equal(t, meta, wardrobe[0].GroupMeta)
}

func TestRouteDeduplicatesAcrossOptions(t *testing.T) {
	pair := outfit.Pair{
		A: outfit.Recommendation{Summary: "a", Top: "white tee", Shoes: "loafers"},
		B: outfit.Recommendation{Summary: "b", Top: "white tee", Shoes: "boots"},
	}

	shopping, wardrobe := Route([]outfit.Option{outfit.OptionA, outfit.OptionB}, pair, outfit.NewCategorySet(outfit.Shoes), meta)

	require.Equal(t, []string{"shoes:loafers", "shoes:boots"}, descriptions(shopping))
	require.Equal(t, []string{"top:white tee"}, descriptions(wardrobe))
}

func TestRouteSplitsByMissingCategory(t *testing.T) {
	pair := outfit.FallbackPair()
	missing := outfit.NewCategorySet(outfit.Belt, outfit.Bag)

	shopping, wardrobe := Route([]outfit.Option{outfit.OptionB}, pair, missing, meta)

	require.Equal(t, []string{"bag:브리프케이스", "belt:블랙 가죽 벨트"}, descriptions(shopping))
	require.Len(t, wardrobe, 5)

	inShopping := map[string]bool{}
	for _, d := range descriptions(shopping) {
		inShopping[d] = true
	}
	for _, d := range descriptions(wardrobe) {
		require.False(t, inShopping[d], "%s routed to both lists", d)
	}
}

func TestRouteSkipsSentinelsAndSummary(t *testing.T) {
	pair := outfit.Pair{A: outfit.Recommendation{
		Summary: "summary text",
		Outer:   "해당 없음",
		Top:     "N/A",
		Bottom:  "",
		Hat:     "bucket hat",
	}}

	shopping, wardrobe := Route([]outfit.Option{outfit.OptionA}, pair, outfit.NewCategorySet(outfit.Outer, outfit.Top), meta)

	require.Empty(t, shopping)
	require.Equal(t, []string{"hat:bucket hat"}, descriptions(wardrobe))
}

func TestRouteIsIdempotent(t *testing.T) {
	pair := outfit.FallbackPair()
	selected := []outfit.Option{outfit.OptionB, outfit.OptionA, outfit.OptionB}
	missing := outfit.NewCategorySet(outfit.Shoes)

	s1, w1 := Route(selected, pair, missing, meta)
	s2, w2 := Route(selected, pair, missing, meta)

	require.Equal(t, s1, s2)
	require.Equal(t, w1, w2)
	// Options are visited A first regardless of selection order.
	require.Equal(t, []string{"shoes:화이트 스니커즈", "shoes:블랙 로퍼"}, descriptions(s1))
}

func TestRouteNoSelection(t *testing.T) {
	shopping, wardrobe := Route(nil, outfit.FallbackPair(), outfit.NewCategorySet(outfit.Top), meta)
	require.Empty(t, shopping)
	require.Empty(t, wardrobe)
}

func TestCollect(t *testing.T) {
	pair := outfit.Pair{
		A: outfit.Recommendation{Top: "white tee", Belt: "N/A"},
		B: outfit.Recommendation{Top: "white tee", Belt: "brown belt"},
	}
	got := Collect([]outfit.Option{outfit.OptionA, outfit.OptionB}, pair, meta)
	require.Equal(t, []string{"top:white tee", "belt:brown belt"}, descriptions(got))
}
