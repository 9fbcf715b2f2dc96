// Command stylist-web serves the stylist HTTP API on a local port.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-stylist/internal/app"
	"github.com/fpang/ai-stylist/internal/chat"
	"github.com/fpang/ai-stylist/internal/cli"
	"github.com/fpang/ai-stylist/internal/config"
	"github.com/fpang/ai-stylist/internal/logging"
)

// CLI flags
var (
	portFlag       int
	modelFlag      string
	storeFlag      string
	skipValidation bool
)

var rootCmd = &cobra.Command{
	Use:   "stylist-web",
	Short: "HTTP API for outfit recommendations and refinement sessions",
	Long: `Stylist Web starts the stylist API server. Configuration comes from
the environment (and a .env file when present); flags override it.

Examples:
  stylist-web
  stylist-web --port 9090
  stylist-web --store sqlite --model gemini-2.5-pro`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (default STYLIST_PORT)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model for the selected provider")
	rootCmd.Flags().StringVar(&storeFlag, "store", "", "Store backend: memory, sqlite or dynamo")
	rootCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Skip the startup API key check")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()
	var gen chat.Generator
	if skipValidation {
		if gen, err = app.NewGenerator(ctx, cfg); err != nil {
			cli.HandleValidationError(err)
		}
	} else {
		gen = cli.InitGenerator(ctx, cfg)
	}

	st, err := app.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	a, err := app.New(cfg, gen, st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire stylist")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      a.Handler(commitHash),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	a.Describe(logging.NewStartupLogger("stylist-web")).
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("port", fmt.Sprint(cfg.Port)).
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Printf("\n  Stylist API: http://localhost:%d/api/health\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func applyFlags(cfg *config.Config) {
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if storeFlag != "" {
		cfg.Store = storeFlag
	}
	if modelFlag != "" {
		if cfg.Provider == config.ProviderAnthropic {
			cfg.AnthropicModel = modelFlag
		} else {
			cfg.GeminiModel = modelFlag
		}
	}
}
