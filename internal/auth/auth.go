// Package auth checks and validates language-model API keys.
package auth

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/config"
)

// keyEnvVars maps each provider to the environment variable holding its key.
var keyEnvVars = map[string]string{
	config.ProviderGemini:    "GEMINI_API_KEY",
	config.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// KeyEnvVar returns the environment variable that holds provider's key.
func KeyEnvVar(provider string) (string, error) {
	name, ok := keyEnvVars[strings.ToLower(provider)]
	if !ok {
		return "", fmt.Errorf("unknown LLM provider %q", provider)
	}
	return name, nil
}

// GetAPIKey returns the configured key for the selected provider. On Lambda
// the environment is filled from SSM Parameter Store before config is loaded.
func GetAPIKey(cfg config.Config) (string, error) {
	name, err := KeyEnvVar(cfg.Provider)
	if err != nil {
		return "", err
	}
	key := cfg.GeminiAPIKey
	if cfg.Provider == config.ProviderAnthropic {
		key = cfg.AnthropicAPIKey
	}
	if key = strings.TrimSpace(key); key != "" {
		log.Debug().Str("provider", cfg.Provider).Msg("Using API key from environment variable")
		return key, nil
	}
	return "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: fmt.Sprintf("API key not found. Set %s", name),
	}
}
