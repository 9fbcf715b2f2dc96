package classify

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// Keyword is the heuristic classifier. For each absence trigger found in the
// text it takes up to three neighbouring tokens and reports every category
// whose synonym occurs in them as a substring.
type Keyword struct {
	triggers []compiledTrigger
	synonyms []categorySynonyms
}

type compiledTrigger struct {
	words     []string
	direction Direction
}

type categorySynonyms struct {
	category outfit.Category
	words    []string
}

var _ Classifier = (*Keyword)(nil)

// apostrophes folds typographic quotes into the ASCII apostrophe used in the
// lexicon, as phone keyboards type "don’t".
var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u02bc", "'")

func normalize(text string) string {
	return apostrophes.Replace(strings.ToLower(text))
}

// NewKeyword prepares lex for matching. Text and vocabulary are compared in
// lower case.
func NewKeyword(lex *Lexicon) *Keyword {
	k := &Keyword{}
	for _, tr := range lex.Triggers {
		words := strings.Fields(normalize(tr.Phrase))
		if len(words) == 0 {
			continue
		}
		k.triggers = append(k.triggers, compiledTrigger{words: words, direction: tr.Direction})
	}
	for _, c := range outfit.Categories() {
		var words []string
		for _, w := range lex.Synonyms[c] {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				words = append(words, w)
			}
		}
		if len(words) > 0 {
			k.synonyms = append(k.synonyms, categorySynonyms{category: c, words: words})
		}
	}
	return k
}

// Classify implements Classifier. The selected options are not consulted.
func (k *Keyword) Classify(_ context.Context, text string, _ map[outfit.Option]outfit.Recommendation) outfit.CategorySet {
	result := outfit.NewCategorySet()
	tokens := strings.Fields(normalize(text))
	if len(tokens) == 0 {
		return result
	}

	for _, tr := range k.triggers {
		pos := tr.find(tokens)
		// A trigger opening the text has nothing in front of it, and the
		// same rule is applied to forward triggers for consistency.
		if pos <= 0 {
			continue
		}
		phrase := strings.Join(tr.window(tokens, pos), " ")
		for _, cs := range k.synonyms {
			for _, w := range cs.words {
				if strings.Contains(phrase, w) {
					result.Add(cs.category)
					break
				}
			}
		}
	}

	log.Debug().
		Int("tokens", len(tokens)).
		Strs("missing", result.Strings()).
		Msg("Keyword classification complete")
	return result
}

// find returns the index of the first token where the trigger matches, or -1.
// A multi-word trigger matches consecutive tokens that each contain the
// corresponding word.
func (t compiledTrigger) find(tokens []string) int {
	for i := 0; i+len(t.words) <= len(tokens); i++ {
		matched := true
		for j, w := range t.words {
			if !strings.Contains(tokens[i+j], w) {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}

// window returns the candidate item tokens next to a trigger found at pos.
func (t compiledTrigger) window(tokens []string, pos int) []string {
	before := tokens[max(0, pos-windowSize):pos]
	start := pos + len(t.words)
	after := tokens[start:min(start+windowSize, len(tokens))]
	switch t.direction {
	case After:
		return after
	case Both:
		return append(slices.Clone(before), after...)
	}
	return before
}
