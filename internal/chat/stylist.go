package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/assets"
	"github.com/fpang/ai-stylist/internal/jsonutil"
	"github.com/fpang/ai-stylist/internal/metrics"
	"github.com/fpang/ai-stylist/internal/outfit"
)

// Stylist produces outfit recommendations and feedback analysis on top of a
// Generator.
type Stylist struct {
	gen Generator
}

// NewStylist wraps gen.
func NewStylist(gen Generator) *Stylist {
	return &Stylist{gen: gen}
}

// Provider returns the name of the underlying generator.
func (s *Stylist) Provider() string { return s.gen.Name() }

// Recommend asks for a new pair. It never returns an error: any transport or
// parse failure yields outfit.FallbackPair.
func (s *Stylist) Recommend(ctx context.Context, req outfit.Request) (outfit.Pair, error) {
	pair, err := s.recommend(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("provider", s.gen.Name()).Msg("Recommendation failed, serving fallback pair")
		return outfit.FallbackPair(), nil
	}
	return pair, nil
}

func (s *Stylist) recommend(ctx context.Context, req outfit.Request) (outfit.Pair, error) {
	prompt := assets.RenderRecommendPrompt(req)
	start := time.Now()
	raw, err := s.gen.Generate(ctx, assets.StylistSystemPrompt, prompt)
	s.record("recommend", start, err)
	if err != nil {
		return outfit.Pair{}, err
	}

	pair, err := ParseRecommendation(raw)
	if err != nil {
		return outfit.Pair{}, err
	}
	log.Info().
		Str("summaryA", pair.A.Summary).
		Str("summaryB", pair.B.Summary).
		Int("excluded", len(req.Exclude)).
		Msg("Recommendation received")
	return pair, nil
}

// ParseRecommendation decodes a model reply into a pair. A reply without
// both summaries is rejected.
func ParseRecommendation(raw string) (outfit.Pair, error) {
	pair, err := jsonutil.ParseJSON[outfit.Pair](raw)
	if err != nil {
		return outfit.Pair{}, fmt.Errorf("parse recommendation: %w", err)
	}
	if strings.TrimSpace(pair.A.Summary) == "" || strings.TrimSpace(pair.B.Summary) == "" {
		return outfit.Pair{}, fmt.Errorf("parse recommendation: missing summary")
	}
	return pair, nil
}

type analysisReply struct {
	MissingCategories []string `json:"missingCategories"`
}

// MissingCategories asks the model which categories the feedback says the
// user lacks. Names outside the closed category set are dropped. Errors are
// returned so callers can choose their own fallback.
func (s *Stylist) MissingCategories(ctx context.Context, text string, selected map[outfit.Option]outfit.Recommendation) ([]outfit.Category, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	selectedJSON, err := json.Marshal(selected)
	if err != nil {
		return nil, fmt.Errorf("encode selected options: %w", err)
	}

	start := time.Now()
	raw, err := s.gen.Generate(ctx, assets.AnalyzeSystemPrompt, assets.RenderAnalyzePrompt(text, string(selectedJSON)))
	s.record("analyze", start, err)
	if err != nil {
		return nil, err
	}

	reply, err := jsonutil.ParseJSON[analysisReply](raw)
	if err != nil {
		return nil, fmt.Errorf("parse category analysis: %w", err)
	}

	var out []outfit.Category
	for _, name := range reply.MissingCategories {
		c, err := outfit.ParseCategory(name)
		if err != nil {
			log.Debug().Str("category", name).Msg("Ignoring unknown category from model")
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Stylist) record(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.New(metrics.Namespace).
		Dimension("Operation", operation).
		Dimension("Provider", s.gen.Name()).
		Duration("ModelLatencyMs", start).
		Count("ModelCallCount").
		Property("result", result).
		Flush()
}
