// Package cli holds startup helpers shared by the interactive binaries.
package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/app"
	"github.com/fpang/ai-stylist/internal/auth"
	"github.com/fpang/ai-stylist/internal/chat"
	"github.com/fpang/ai-stylist/internal/config"
)

// InitGenerator creates the configured model client and validates its key.
// It exits fatally on failure.
func InitGenerator(ctx context.Context, cfg config.Config) chat.Generator {
	gen, err := app.NewGenerator(ctx, cfg)
	if err != nil {
		HandleValidationError(err)
	}

	log.Info().Str("provider", gen.Name()).Msg("connection successful - model client initialized")

	if err := auth.ValidateAPIKey(ctx, gen); err != nil {
		HandleValidationError(err)
	}

	log.Info().Msg("API key validation complete - ready for operations")

	return gen
}
