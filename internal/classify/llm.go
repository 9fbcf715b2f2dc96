package classify

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// LLM delegates classification to an external Analyzer. Any failure yields
// an empty set.
type LLM struct {
	analyzer Analyzer
}

var _ Classifier = (*LLM)(nil)

// NewLLM wraps analyzer.
func NewLLM(analyzer Analyzer) *LLM {
	return &LLM{analyzer: analyzer}
}

// Classify implements Classifier.
func (l *LLM) Classify(ctx context.Context, text string, selected map[outfit.Option]outfit.Recommendation) outfit.CategorySet {
	set, err := l.classify(ctx, text, selected)
	if err != nil {
		log.Warn().Err(err).Msg("Category analysis failed, treating as no missing items")
		return outfit.NewCategorySet()
	}
	return set
}

func (l *LLM) classify(ctx context.Context, text string, selected map[outfit.Option]outfit.Recommendation) (outfit.CategorySet, error) {
	if strings.TrimSpace(text) == "" {
		return outfit.NewCategorySet(), nil
	}
	cats, err := l.analyzer.MissingCategories(ctx, text, selected)
	if err != nil {
		return nil, err
	}
	// CategorySet.Add drops anything outside the closed set.
	return outfit.NewCategorySet(cats...), nil
}

// Fallback asks the Analyzer first and uses the keyword heuristic only when
// the call itself fails. A successful empty answer is kept.
type Fallback struct {
	llm      *LLM
	fallback Classifier
}

var _ Classifier = (*Fallback)(nil)

// NewFallback combines analyzer with a fallback classifier.
func NewFallback(analyzer Analyzer, fallback Classifier) *Fallback {
	return &Fallback{llm: NewLLM(analyzer), fallback: fallback}
}

// Classify implements Classifier.
func (f *Fallback) Classify(ctx context.Context, text string, selected map[outfit.Option]outfit.Recommendation) outfit.CategorySet {
	set, err := f.llm.classify(ctx, text, selected)
	if err == nil {
		return set
	}
	log.Warn().Err(err).Msg("Category analysis failed, using keyword heuristic")
	return f.fallback.Classify(ctx, text, selected)
}
