// Package app assembles the stylist from configuration: the model
// provider, classifier, weather client, store and refinement controller.
// Every binary builds on it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/auth"
	"github.com/fpang/ai-stylist/internal/chat"
	"github.com/fpang/ai-stylist/internal/classify"
	"github.com/fpang/ai-stylist/internal/config"
	"github.com/fpang/ai-stylist/internal/httpapi"
	"github.com/fpang/ai-stylist/internal/lambdaboot"
	"github.com/fpang/ai-stylist/internal/logging"
	"github.com/fpang/ai-stylist/internal/refine"
	"github.com/fpang/ai-stylist/internal/store"
	"github.com/fpang/ai-stylist/internal/weather"
)

// App is a fully wired stylist.
type App struct {
	Config     config.Config
	Stylist    *chat.Stylist
	Classifier classify.Classifier
	Weather    *weather.Client
	Store      store.Store
	Controller *refine.Controller
}

// NewGenerator creates the text generator for the configured provider.
func NewGenerator(ctx context.Context, cfg config.Config) (chat.Generator, error) {
	apiKey, err := auth.GetAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return chat.NewAnthropic(apiKey, cfg.AnthropicModel), nil
	default:
		client, err := chat.NewGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return chat.NewGemini(client, cfg.GeminiModel), nil
	}
}

// OpenStore opens the configured persistence backend.
func OpenStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return store.OpenSQLite(cfg.SQLitePath)
	case config.StoreDynamo:
		return lambdaboot.InitDynamo(lambdaboot.InitAWS().Config, cfg.DynamoTable), nil
	case config.StoreMemory, "":
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// StoreTarget describes the backend for startup logs.
func StoreTarget(cfg config.Config) string {
	switch cfg.Store {
	case config.StoreSQLite:
		return "sqlite:" + cfg.SQLitePath
	case config.StoreDynamo:
		return "dynamo:" + cfg.DynamoTable
	}
	return "memory"
}

// New wires an App around gen and st.
func New(cfg config.Config, gen chat.Generator, st store.Store) (*App, error) {
	stylist := chat.NewStylist(gen)
	lex, err := cfg.Lexicon()
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	classifier, err := classify.New(cfg.Classifier, stylist, lex)
	if err != nil {
		return nil, err
	}
	wc := weather.NewClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL)
	if !wc.Configured() {
		log.Warn().Msg("WEATHER_API_KEY not set; prompts will carry no weather")
	}

	controller := refine.NewController(refine.Config{
		Recommender:   stylist,
		Weather:       wc,
		Classifier:    classifier,
		Items:         st,
		History:       st,
		StrictPersist: cfg.StrictPersist,
	})
	return &App{
		Config:     cfg,
		Stylist:    stylist,
		Classifier: classifier,
		Weather:    wc,
		Store:      st,
		Controller: controller,
	}, nil
}

// Handler returns the HTTP API for a.
func (a *App) Handler(version string) http.Handler {
	return httpapi.New(httpapi.Deps{
		Controller:     a.Controller,
		Recommender:    a.Stylist,
		Weather:        a.Weather,
		Classifier:     a.Classifier,
		Store:          a.Store,
		AllowedOrigins: a.Config.AllowedOrigins,
		Version:        version,
	}).Handler()
}

// Describe registers the non-secret configuration on a startup logger.
func (a *App) Describe(sl *logging.StartupLogger) *logging.StartupLogger {
	model := chat.GetModelName(a.Config.GeminiModel)
	if a.Config.Provider == config.ProviderAnthropic {
		model = chat.GetAnthropicModelName(a.Config.AnthropicModel)
	}
	return sl.
		Store("stylist", StoreTarget(a.Config)).
		Config("provider", a.Config.Provider).
		Config("model", model).
		Config("classifier", a.Config.Classifier).
		Config("allowedOrigins", strings.Join(a.Config.AllowedOrigins, ",")).
		Feature("weather", a.Weather.Configured()).
		Feature("strictPersist", a.Config.StrictPersist)
}
