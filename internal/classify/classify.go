// Package classify turns free-form feedback ("I don't have a belt") into the
// set of clothing categories the user lacks.
//
// Three strategies share the Classifier interface: a deterministic keyword
// heuristic, a language-model call, and a hybrid that uses the model and
// falls back to the heuristic when the call fails.
package classify

import (
	"context"
	"fmt"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// Strategy names accepted by New.
const (
	StrategyKeyword = "keyword"
	StrategyLLM     = "llm"
	StrategyHybrid  = "hybrid"
)

// Classifier maps feedback text to missing categories. selected holds the
// options the user currently has checked, as context. Implementations never
// fail; an unusable answer is an empty set.
type Classifier interface {
	Classify(ctx context.Context, text string, selected map[outfit.Option]outfit.Recommendation) outfit.CategorySet
}

// Analyzer is the external text-understanding service.
type Analyzer interface {
	MissingCategories(ctx context.Context, text string, selected map[outfit.Option]outfit.Recommendation) ([]outfit.Category, error)
}

// New builds the classifier for strategy. analyzer may be nil for the
// keyword strategy; lex may be nil to use DefaultLexicon.
func New(strategy string, analyzer Analyzer, lex *Lexicon) (Classifier, error) {
	if lex == nil {
		lex = DefaultLexicon()
	}
	keyword := NewKeyword(lex)
	switch strategy {
	case StrategyKeyword, "":
		return keyword, nil
	case StrategyLLM:
		if analyzer == nil {
			return nil, fmt.Errorf("classifier %q requires an analyzer", strategy)
		}
		return NewLLM(analyzer), nil
	case StrategyHybrid:
		if analyzer == nil {
			return nil, fmt.Errorf("classifier %q requires an analyzer", strategy)
		}
		return NewFallback(analyzer, keyword), nil
	}
	return nil, fmt.Errorf("unknown classifier strategy %q", strategy)
}
