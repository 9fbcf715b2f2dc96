package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// Direction says which side of an absence trigger holds the item phrase.
type Direction string

const (
	// Before is used for postpositional triggers ("벨트 없어").
	Before Direction = "before"
	// After is used for prepositional triggers ("don't have shoes").
	After Direction = "after"
	// Both reads either side, for words English puts before or after the
	// item ("missing a belt", "belt is missing").
	Both Direction = "both"
)

// windowSize is the number of tokens taken next to a trigger.
const windowSize = 3

// Trigger is an absence keyword, possibly several words long.
type Trigger struct {
	Phrase    string    `yaml:"phrase"`
	Direction Direction `yaml:"direction"`
}

// Lexicon holds the trigger keywords and per-category synonyms used by the
// keyword classifier.
type Lexicon struct {
	Triggers []Trigger                     `yaml:"triggers"`
	Synonyms map[outfit.Category][]string `yaml:"synonyms"`
}

// DefaultLexicon returns the built-in Korean and English vocabulary.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Triggers: []Trigger{
			{Phrase: "없어", Direction: Before},
			{Phrase: "없는데", Direction: Before},
			{Phrase: "없음", Direction: Before},
			{Phrase: "없습니다", Direction: Before},
			{Phrase: "빼고", Direction: Before},
			{Phrase: "빼주세요", Direction: Before},
			{Phrase: "제외", Direction: Before},
			{Phrase: "don't have", Direction: After},
			{Phrase: "do not have", Direction: After},
			{Phrase: "no longer have", Direction: After},
			{Phrase: "missing", Direction: Both},
			{Phrase: "without", Direction: After},
			{Phrase: "excluding", Direction: After},
			{Phrase: "except", Direction: After},
		},
		Synonyms: map[outfit.Category][]string{
			outfit.Outer:   {"아우터", "자켓", "재킷", "코트", "점퍼", "블레이저", "jacket", "coat", "blazer", "parka", "outer"},
			outfit.Top:     {"상의", "티셔츠", "셔츠", "블라우스", "니트", "shirt", "tee", "blouse", "sweater", "top"},
			outfit.Bottom:  {"하의", "바지", "팬츠", "스커트", "청바지", "슬랙스", "pants", "trousers", "jeans", "skirt", "slacks", "shorts"},
			outfit.Shoes:   {"신발", "구두", "스니커즈", "운동화", "로퍼", "부츠", "shoes", "sneakers", "boots", "loafers", "heels", "sandals"},
			outfit.Bag:     {"가방", "백", "숄더백", "크로스백", "토트백", "백팩", "bag", "backpack", "purse", "tote"},
			outfit.Belt:    {"벨트", "belt"},
			outfit.Hat:     {"모자", "캡", "비니", "베레모", "hat", "cap", "beanie", "beret"},
			outfit.Jewelry: {"주얼리", "목걸이", "반지", "귀걸이", "팔찌", "시계", "jewelry", "necklace", "ring", "earrings", "bracelet", "watch"},
		},
	}
}

// LoadLexicon reads a YAML lexicon file. Keys under synonyms must be valid
// categories and every trigger needs a direction.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon yaml: %w", err)
	}
	if err := lex.validate(); err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return &lex, nil
}

func (l *Lexicon) validate() error {
	if len(l.Triggers) == 0 {
		return fmt.Errorf("no triggers defined")
	}
	for i, tr := range l.Triggers {
		if strings.TrimSpace(tr.Phrase) == "" {
			return fmt.Errorf("trigger %d has an empty phrase", i)
		}
		switch tr.Direction {
		case Before, After, Both:
		default:
			return fmt.Errorf("trigger %q has direction %q, want before, after or both", tr.Phrase, tr.Direction)
		}
	}
	for c := range l.Synonyms {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q", c)
		}
	}
	return nil
}
