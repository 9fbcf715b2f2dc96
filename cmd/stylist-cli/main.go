// Command stylist-cli runs the stylist from a terminal: one-shot
// recommendations, feedback classification, and an interactive refinement
// session backed by the configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-stylist/internal/app"
	"github.com/fpang/ai-stylist/internal/classify"
	"github.com/fpang/ai-stylist/internal/cli"
	"github.com/fpang/ai-stylist/internal/config"
	"github.com/fpang/ai-stylist/internal/logging"
	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/refine"
	"github.com/fpang/ai-stylist/internal/route"
)

// CLI flags
var (
	modelFlag    string
	strategyFlag string
	selectedFlag []string
	routeFlag    []string
	missingFlag  []string
	ownerFlag    string

	info outfit.RequestInfo
)

var rootCmd = &cobra.Command{
	Use:   "stylist-cli",
	Short: "Outfit recommendations from the terminal",
	Long: `Stylist CLI asks the configured model for outfit pairs, classifies
feedback into missing clothing categories, and runs refinement sessions.

Examples:
  stylist-cli recommend --date 2026-10-15 --item 슬랙스 --tpo 출근 --mood 미니멀
  stylist-cli classify "벨트가 없어요" --strategy keyword
  stylist-cli route pair.json --selected A,B --missing belt
  stylist-cli session --item 슬랙스 --tpo 출근 --mood 미니멀`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print one recommendation pair as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		a := newApp(ctx, cfg, false)
		if missing := info.MissingFields(); len(missing) > 0 {
			log.Fatal().Strs("missing", missing).Msg("Incomplete request")
		}
		req := outfit.Request{
			RequestInfo: info,
			Weather:     refine.WeatherText(ctx, a.Weather, info.Context.LocationOrDefault()),
		}
		pair, err := a.Stylist.Recommend(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Msg("Recommendation failed")
		}
		printJSON(struct {
			outfit.Pair
			Weather string `json:"weather"`
		}{pair, req.Weather})
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <feedback>",
	Short: "Print the clothing categories feedback says are missing",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		if strategyFlag != "" {
			cfg.Classifier = strings.ToLower(strategyFlag)
		}

		var classifier classify.Classifier
		if cfg.Classifier == classify.StrategyKeyword {
			lex, err := cfg.Lexicon()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load lexicon")
			}
			classifier = classify.NewKeyword(lex)
		} else {
			classifier = newApp(ctx, cfg, false).Classifier
		}

		pair := outfit.FallbackPair()
		selected := make(map[outfit.Option]outfit.Recommendation)
		for _, s := range selectedFlag {
			o, err := outfit.ParseOption(s)
			if err != nil {
				log.Fatal().Err(err).Msg("Invalid --selected value")
			}
			selected[o], _ = pair.Option(o)
		}

		missing := classifier.Classify(ctx, strings.Join(args, " "), selected)
		printJSON(map[string][]string{"missingCategories": missing.Strings()})
	},
}

var routeCmd = &cobra.Command{
	Use:   "route [pair.json]",
	Short: "Split a pair's selected items into shopping-list and wardrobe entries",
	Long: `Route reads a recommendation pair ({"recommendation_A": {...},
"recommendation_B": {...}}) from the named file or stdin and prints the
routed items. No model call is made.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to open pair file")
			}
			defer f.Close()
			in = f
		}
		var pair outfit.Pair
		if err := json.NewDecoder(in).Decode(&pair); err != nil {
			log.Fatal().Err(err).Msg("Invalid pair JSON")
		}

		var opts []outfit.Option
		for _, s := range routeFlag {
			o, err := outfit.ParseOption(s)
			if err != nil {
				log.Fatal().Err(err).Msg("Invalid --selected value")
			}
			opts = append(opts, o)
		}
		missing := outfit.NewCategorySet()
		for _, s := range missingFlag {
			c, err := outfit.ParseCategory(s)
			if err != nil {
				log.Fatal().Err(err).Msg("Invalid --missing value")
			}
			missing.Add(c)
		}

		meta := outfit.NewGroupMeta(time.Now(), info.Style, info.Context.Date, "")
		shopping, wardrobe := route.Route(opts, pair, missing, meta)
		printJSON(map[string][]outfit.CategoryItem{
			"shoppingItems": shopping,
			"wardrobeItems": wardrobe,
		})
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run an interactive refinement session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		a := newApp(ctx, cfg, true)
		defer a.Store.Close()

		p := cli.NewPrompter(os.Stdin, os.Stdout)
		fill := func(field *string, label string) {
			if *field == "" {
				*field, _ = p.Ask(label, "")
			}
		}
		fill(&info.Context.Date, "Date")
		fill(&info.Style.Item, "Item")
		fill(&info.Style.TPO, "TPO")
		fill(&info.Style.Mood, "Mood")

		owner := ownerFlag
		if owner == "" {
			id, err := a.Store.CreateOwner(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create owner")
			}
			owner = id
			fmt.Printf("owner: %s\n", owner)
		}

		s := refine.NewSession(uuid.NewString(), owner)
		if err := cli.RunSession(ctx, a.Controller, s, info, p); err != nil {
			log.Fatal().Err(err).Msg("Session failed")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model for the selected provider")

	for _, c := range []*cobra.Command{recommendCmd, sessionCmd} {
		c.Flags().StringVar(&info.Context.Date, "date", "", "Date the outfit is for")
		c.Flags().StringVar(&info.Context.Location, "location", "", "City (default "+outfit.DefaultLocation+")")
		c.Flags().StringVar(&info.Style.Item, "item", "", "Item to build the outfit around")
		c.Flags().StringVar(&info.Style.TPO, "tpo", "", "Time, place and occasion")
		c.Flags().StringVar(&info.Style.Mood, "mood", "", "Desired mood")
		c.Flags().StringVar(&info.Profile.Age, "age", "", "Age")
		c.Flags().StringVar(&info.Profile.Gender, "gender", "", "Gender")
		c.Flags().StringVar(&info.Profile.Occupation, "occupation", "", "Occupation")
	}
	sessionCmd.Flags().StringVar(&ownerFlag, "owner", "", "Existing owner ID (default: create one)")
	classifyCmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "keyword, llm or hybrid (default STYLIST_CLASSIFIER)")
	classifyCmd.Flags().StringSliceVar(&selectedFlag, "selected", nil, "Selected options for context, e.g. A,B")
	routeCmd.Flags().StringSliceVar(&routeFlag, "selected", []string{"A"}, "Selected options, e.g. A,B")
	routeCmd.Flags().StringSliceVar(&missingFlag, "missing", nil, "Missing categories, e.g. belt,shoes")
	routeCmd.Flags().StringVar(&info.Style.TPO, "tpo", "", "TPO for the group name")
	routeCmd.Flags().StringVar(&info.Style.Mood, "mood", "", "Mood for the group name")
	routeCmd.Flags().StringVar(&info.Context.Date, "date", "", "Group date")

	rootCmd.AddCommand(recommendCmd, classifyCmd, routeCmd, sessionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if modelFlag != "" {
		if cfg.Provider == config.ProviderAnthropic {
			cfg.AnthropicModel = modelFlag
		} else {
			cfg.GeminiModel = modelFlag
		}
	}
	return cfg
}

// newApp validates the model key and wires the stylist. Only the session
// command needs a persistent store.
func newApp(ctx context.Context, cfg config.Config, withStore bool) *app.App {
	gen := cli.InitGenerator(ctx, cfg)
	if !withStore {
		cfg.Store = config.StoreMemory
	}
	st, err := app.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	a, err := app.New(cfg, gen, st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire stylist")
	}
	return a
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}
