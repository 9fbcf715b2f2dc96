// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time so the binaries carry no runtime file dependencies.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// --- Static prompts (no dynamic data) ---

// StylistSystemPrompt instructs the model to answer with a recommendation pair.
//
//go:embed prompts/stylist-system.txt
var StylistSystemPrompt string

// AnalyzeSystemPrompt instructs the model to extract missing categories from
// user feedback.
//
//go:embed prompts/analyze-system.txt
var AnalyzeSystemPrompt string

// --- Dynamic prompt templates ---

//go:embed prompts/recommend.txt
var recommendTemplate string

//go:embed prompts/analyze.txt
var analyzeTemplate string

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// template.Must panics on malformed templates, so a broken prompt file fails
// at startup rather than on the first request.
var (
	recommendTmpl = template.Must(template.New("recommend").Funcs(funcs).Parse(recommendTemplate))
	analyzeTmpl   = template.Must(template.New("analyze").Parse(analyzeTemplate))
)

// RecommendData is the data injected into the recommendation prompt.
type RecommendData struct {
	outfit.RequestInfo
	Location    string
	Weather     string
	Considering string
	Exclude     []outfit.SummaryPair
}

// RenderRecommendPrompt renders the user prompt for one recommendation request.
func RenderRecommendPrompt(req outfit.Request) string {
	return render(recommendTmpl, RecommendData{
		RequestInfo: req.RequestInfo,
		Location:    req.Context.LocationOrDefault(),
		Weather:     req.Weather,
		Considering: strings.TrimSpace(req.Considering),
		Exclude:     req.Exclude,
	})
}

// AnalyzeData is the data injected into the category analysis prompt.
type AnalyzeData struct {
	Text         string
	SelectedJSON string
	Categories   string
}

// RenderAnalyzePrompt renders the user prompt for category analysis.
// selectedJSON is the JSON encoding of the options the user has checked.
func RenderAnalyzePrompt(text, selectedJSON string) string {
	names := make([]string, 0, 8)
	for _, c := range outfit.Categories() {
		names = append(names, string(c))
	}
	return render(analyzeTmpl, AnalyzeData{
		Text:         text,
		SelectedJSON: selectedJSON,
		Categories:   strings.Join(names, ", "),
	})
}

func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	// Whatever rendered before a failure is still returned.
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("Failed to render prompt template")
	}
	return buf.String()
}
