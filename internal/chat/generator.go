// Package chat talks to the language-model providers. A Generator sends one
// system and user prompt pair and returns the raw reply; the Stylist builds
// the outfit prompts on top of it and parses the replies.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Generator is a single-turn text generation backend.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

// NewGeminiClient creates a Gemini API client for apiKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}

// Gemini generates text with a Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Generator = (*Gemini)(nil)

// NewGemini wraps client. An empty model resolves through GetModelName.
func NewGemini(client *genai.Client, model string) *Gemini {
	return &Gemini{client: client, model: GetModelName(model)}
}

// Name implements Generator.
func (g *Gemini) Name() string { return "gemini" }

// Generate implements Generator. Replies are requested as JSON.
func (g *Gemini) Generate(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
		ResponseMIMEType: "application/json",
	}

	log.Debug().
		Str("model", g.model).
		Int("prompt_length", len(prompt)).
		Msg("Starting Gemini API call")

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Gemini API call failed")
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	log.Debug().
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Gemini API response received")
	return text, nil
}

// Anthropic generates text with a Claude model.
type Anthropic struct {
	client anthropic.Client
	model  string
}

var _ Generator = (*Anthropic)(nil)

// NewAnthropic creates a Claude-backed generator. An empty model resolves
// through GetAnthropicModelName. Extra options are passed to the SDK client.
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  GetAnthropicModelName(model),
	}
}

// Name implements Generator.
func (a *Anthropic) Name() string { return "anthropic" }

// Generate implements Generator and returns the first text block.
func (a *Anthropic) Generate(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Anthropic API call failed")
		return "", fmt.Errorf("anthropic generate: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			log.Debug().
				Int("response_length", len(block.Text)).
				Int64("tokens_in", message.Usage.InputTokens).
				Int64("tokens_out", message.Usage.OutputTokens).
				Dur("duration", time.Since(start)).
				Msg("Anthropic API response received")
			return block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}
