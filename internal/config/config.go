// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"github.com/fpang/ai-stylist/internal/classify"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreDynamo = "dynamo"
)

// LLM providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config holds every setting shared by the binaries. Secrets are read here
// but never logged.
type Config struct {
	Port           int      `env:"STYLIST_PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"STYLIST_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	Provider        string `env:"STYLIST_LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiModel     string `env:"GEMINI_MODEL"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL"`

	WeatherAPIKey string `env:"WEATHER_API_KEY"`
	WeatherAPIURL string `env:"WEATHER_API_URL" envDefault:"https://api.openweathermap.org/data/2.5/weather"`

	Classifier    string `env:"STYLIST_CLASSIFIER" envDefault:"llm"`
	LexiconPath   string `env:"STYLIST_LEXICON_PATH"`
	StrictPersist bool   `env:"STYLIST_STRICT_PERSIST" envDefault:"false"`

	Store       string `env:"STYLIST_STORE" envDefault:"memory"`
	SQLitePath  string `env:"STYLIST_SQLITE_PATH" envDefault:"stylist.db"`
	DynamoTable string `env:"STYLIST_DYNAMO_TABLE"`
}

// Load reads .env (if present) and parses the environment into Config.
func Load() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Classifier = strings.ToLower(strings.TrimSpace(cfg.Classifier))
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and missing required companions.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("STYLIST_LLM_PROVIDER %q: want %s or %s", c.Provider, ProviderGemini, ProviderAnthropic)
	}
	switch c.Classifier {
	case classify.StrategyKeyword, classify.StrategyLLM, classify.StrategyHybrid:
	default:
		return fmt.Errorf("STYLIST_CLASSIFIER %q: want keyword, llm or hybrid", c.Classifier)
	}
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StoreDynamo:
		if c.DynamoTable == "" {
			return fmt.Errorf("STYLIST_DYNAMO_TABLE is required when STYLIST_STORE=dynamo")
		}
	default:
		return fmt.Errorf("STYLIST_STORE %q: want memory, sqlite or dynamo", c.Store)
	}
	return nil
}

// Lexicon returns the configured classifier lexicon: the YAML file named by
// STYLIST_LEXICON_PATH, or the built-in default.
func (c Config) Lexicon() (*classify.Lexicon, error) {
	if c.LexiconPath == "" {
		return classify.DefaultLexicon(), nil
	}
	return classify.LoadLexicon(c.LexiconPath)
}
