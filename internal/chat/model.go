package chat

import "os"

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                      |
// |-----------------------------|-----------------------------|-------------------------------|
// | Gemini 3 Flash (Preview)    | gemini-3-flash-preview      | Best for speed + intelligence |
// | Gemini 2.5 Pro              | gemini-2.5-pro              | Stable, high-reasoning tasks  |
// | Gemini 2.5 Flash            | gemini-2.5-flash            | Stable, balanced performance  |
// | Gemini 2.5 Flash-Lite       | gemini-2.5-flash-lite       | High-throughput, lowest cost  |
const (
	ModelGemini3FlashPreview = "gemini-3-flash-preview"
	ModelGemini25Pro         = "gemini-2.5-pro"
	ModelGemini25Flash       = "gemini-2.5-flash"
	ModelGemini25FlashLite   = "gemini-2.5-flash-lite"
)

// DefaultModelName is the default Gemini model. Outfit suggestions are short
// JSON documents, so the fast tier is sufficient.
const DefaultModelName = ModelGemini25Flash

// DefaultAnthropicModel is used when the Anthropic provider is selected
// without ANTHROPIC_MODEL.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// GetModelName returns the Gemini model to use, resolved from:
//  1. the explicit override (a CLI flag or config value), if non-empty
//  2. the GEMINI_MODEL environment variable, if set
//  3. DefaultModelName
func GetModelName(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	return DefaultModelName
}

// GetAnthropicModelName resolves the Anthropic model the same way from
// ANTHROPIC_MODEL.
func GetAnthropicModelName(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv("ANTHROPIC_MODEL"); env != "" {
		return env
	}
	return DefaultAnthropicModel
}
