package outfit

import (
	"fmt"
	"strings"
)

// NotApplicable is the marker a recommendation uses for a slot it leaves empty.
const NotApplicable = "N/A"

// notApplicableMarkers are the values treated as "no item". The Korean
// marker is what the recommendation prompt asks the model to emit.
var notApplicableMarkers = []string{NotApplicable, "해당 없음", "없음", "-"}

// IsNotApplicable reports whether v marks a deliberately omitted slot.
func IsNotApplicable(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	for _, m := range notApplicableMarkers {
		if strings.EqualFold(v, m) {
			return true
		}
	}
	return false
}

// Option labels one of the two alternatives in a recommendation pair.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
)

// Options returns A and B in display order.
func Options() []Option { return []Option{OptionA, OptionB} }

// ParseOption accepts "A", "b", "recommendation_A" and similar spellings.
func ParseOption(s string) (Option, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "RECOMMENDATION_")
	switch Option(s) {
	case OptionA, OptionB:
		return Option(s), nil
	}
	return "", fmt.Errorf("unknown option %q", s)
}

// Recommendation is one proposed outfit: a summary plus one value per category.
type Recommendation struct {
	Summary string `json:"summary" dynamodbav:"summary"`
	Outer   string `json:"outer" dynamodbav:"outer"`
	Top     string `json:"top" dynamodbav:"top"`
	Bottom  string `json:"bottom" dynamodbav:"bottom"`
	Shoes   string `json:"shoes" dynamodbav:"shoes"`
	Bag     string `json:"bag" dynamodbav:"bag"`
	Belt    string `json:"belt" dynamodbav:"belt"`
	Hat     string `json:"hat" dynamodbav:"hat"`
	Jewelry string `json:"jewelry" dynamodbav:"jewelry"`
}

// Item returns the value for category c, or "" for an unknown category.
func (r Recommendation) Item(c Category) string {
	switch c {
	case Outer:
		return r.Outer
	case Top:
		return r.Top
	case Bottom:
		return r.Bottom
	case Shoes:
		return r.Shoes
	case Bag:
		return r.Bag
	case Belt:
		return r.Belt
	case Hat:
		return r.Hat
	case Jewelry:
		return r.Jewelry
	}
	return ""
}

// Items returns the applicable category values in fixed order.
func (r Recommendation) Items() map[Category]string {
	out := make(map[Category]string, len(categoryOrder))
	for _, c := range categoryOrder {
		if v := r.Item(c); !IsNotApplicable(v) {
			out[c] = strings.TrimSpace(v)
		}
	}
	return out
}

// Pair is the two alternatives produced by one recommendation request.
type Pair struct {
	A Recommendation `json:"recommendation_A" dynamodbav:"recommendationA"`
	B Recommendation `json:"recommendation_B" dynamodbav:"recommendationB"`
}

// Option returns the recommendation labelled o.
func (p Pair) Option(o Option) (Recommendation, bool) {
	switch o {
	case OptionA:
		return p.A, true
	case OptionB:
		return p.B, true
	}
	return Recommendation{}, false
}

// Summaries returns the pair's two summaries.
func (p Pair) Summaries() SummaryPair {
	return SummaryPair{A: p.A.Summary, B: p.B.Summary}
}

// IsZero reports whether the pair carries no content at all.
func (p Pair) IsZero() bool {
	return p == Pair{}
}

// SummaryPair is one entry of a session's exclusion history.
type SummaryPair struct {
	A string `json:"a" dynamodbav:"a"`
	B string `json:"b" dynamodbav:"b"`
}

// FallbackPair is served whenever the recommendation service cannot produce
// a usable answer.
func FallbackPair() Pair {
	return Pair{
		A: Recommendation{
			Summary: "캐주얼한 데일리 룩",
			Outer:   "가벼운 데님 재킷",
			Top:     "화이트 코튼 티셔츠",
			Bottom:  "스트레이트 진",
			Shoes:   "화이트 스니커즈",
			Bag:     "크로스백",
			Belt:    "해당 없음",
			Hat:     "해당 없음",
			Jewelry: "심플한 시계",
		},
		B: Recommendation{
			Summary: "세미 포멀한 오피스 룩",
			Outer:   "네이비 블레이저",
			Top:     "라이트 블루 셔츠",
			Bottom:  "차콜 그레이 슬랙스",
			Shoes:   "블랙 로퍼",
			Bag:     "브리프케이스",
			Belt:    "블랙 가죽 벨트",
			Hat:     "해당 없음",
			Jewelry: "메탈 시계",
		},
	}
}
