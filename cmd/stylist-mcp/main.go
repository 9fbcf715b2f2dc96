// Command stylist-mcp serves the stylist's classify, route and recommend
// tools over MCP on stdio. Logs go to stderr so stdout stays reserved for
// the protocol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-stylist/internal/app"
	"github.com/fpang/ai-stylist/internal/config"
	"github.com/fpang/ai-stylist/internal/logging"
	"github.com/fpang/ai-stylist/internal/mcpserver"
	"github.com/fpang/ai-stylist/internal/store"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "stylist-mcp",
	Short: "MCP tool server for outfit recommendations",
	Long: `Stylist MCP exposes three tools over stdio:

  classify_feedback   feedback text -> missing clothing categories
  route_items         selected outfits -> shopping-list and wardrobe items
  recommend_outfits   request -> two new outfits`,
	Run: runMain,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.InitWithWriter(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := app.NewGenerator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}
	// The tools are stateless; nothing is persisted.
	a, err := app.New(cfg, gen, store.NewMemoryStore())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire stylist")
	}

	server := mcpserver.NewServer(&mcpserver.Tools{
		Classifier:  a.Classifier,
		Recommender: a.Stylist,
		Weather:     a.Weather,
	}, version)

	a.Describe(logging.NewStartupLogger("stylist-mcp")).Log()
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
