// Package mcpserver exposes the stylist's classifier, item router and
// recommender as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/classify"
	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/refine"
	"github.com/fpang/ai-stylist/internal/route"
)

// Tools holds the collaborators the tools call.
type Tools struct {
	Classifier  classify.Classifier
	Recommender refine.Recommender
	Weather     refine.WeatherService
	Now         func() time.Time
}

// NewServer registers every tool on a new MCP server.
func NewServer(t *Tools, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "ai-stylist", Version: version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_feedback",
		Description: "List the clothing categories that free-text feedback says the user is missing.",
	}, t.ClassifyFeedback)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "route_items",
		Description: "Split the items of the selected outfits into shopping-list and wardrobe entries.",
	}, t.RouteItems)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_outfits",
		Description: "Recommend two outfits for a request, avoiding previously shown pairs.",
	}, t.RecommendOutfits)
	return server
}

// ClassifyInput is the classify_feedback argument.
type ClassifyInput struct {
	Text     string       `json:"text" jsonschema:"feedback text, e.g. 벨트가 없어요"`
	Pair     *outfit.Pair `json:"pair,omitempty" jsonschema:"the pair the feedback is about"`
	Selected []string     `json:"selected,omitempty" jsonschema:"selected options, A and/or B"`
}

// ClassifyOutput is the classify_feedback result.
type ClassifyOutput struct {
	MissingCategories []string `json:"missingCategories"`
}

// ClassifyFeedback implements classify_feedback.
func (t *Tools) ClassifyFeedback(ctx context.Context, _ *mcp.CallToolRequest, in ClassifyInput) (*mcp.CallToolResult, ClassifyOutput, error) {
	opts, err := parseOptions(in.Selected)
	if err != nil {
		return nil, ClassifyOutput{}, err
	}
	selected := make(map[outfit.Option]outfit.Recommendation, len(opts))
	if in.Pair != nil {
		for _, o := range opts {
			selected[o], _ = in.Pair.Option(o)
		}
	}
	missing := t.Classifier.Classify(ctx, in.Text, selected)
	log.Debug().Strs("missing", missing.Strings()).Msg("classify_feedback")
	return nil, ClassifyOutput{MissingCategories: missing.Strings()}, nil
}

// RouteInput is the route_items argument.
type RouteInput struct {
	Pair     outfit.Pair         `json:"pair"`
	Selected []string            `json:"selected" jsonschema:"selected options, A and/or B"`
	Missing  []string            `json:"missingCategories" jsonschema:"categories to put on the shopping list"`
	Style    outfit.StyleRequest `json:"style,omitempty"`
	Date     string              `json:"date,omitempty"`
	Weather  string              `json:"weather,omitempty"`
}

// RouteOutput is the route_items result.
type RouteOutput struct {
	Shopping []outfit.CategoryItem `json:"shoppingItems"`
	Wardrobe []outfit.CategoryItem `json:"wardrobeItems"`
}

// RouteItems implements route_items.
func (t *Tools) RouteItems(_ context.Context, _ *mcp.CallToolRequest, in RouteInput) (*mcp.CallToolResult, RouteOutput, error) {
	opts, err := parseOptions(in.Selected)
	if err != nil {
		return nil, RouteOutput{}, err
	}
	missing := outfit.NewCategorySet()
	for _, s := range in.Missing {
		c, err := outfit.ParseCategory(s)
		if err != nil {
			return nil, RouteOutput{}, err
		}
		missing.Add(c)
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	meta := outfit.NewGroupMeta(now(), in.Style, in.Date, in.Weather)
	shopping, wardrobe := route.Route(opts, in.Pair, missing, meta)
	return nil, RouteOutput{Shopping: shopping, Wardrobe: wardrobe}, nil
}

// RecommendInput is the recommend_outfits argument.
type RecommendInput struct {
	Request     outfit.RequestInfo   `json:"request"`
	Exclude     []outfit.SummaryPair `json:"exclude,omitempty" jsonschema:"summaries of pairs already shown"`
	Considering string               `json:"considering,omitempty" jsonschema:"feedback to take into account"`
}

// RecommendOutput is the recommend_outfits result.
type RecommendOutput struct {
	Pair    outfit.Pair `json:"pair"`
	Weather string      `json:"weather"`
}

// RecommendOutfits implements recommend_outfits.
func (t *Tools) RecommendOutfits(ctx context.Context, _ *mcp.CallToolRequest, in RecommendInput) (*mcp.CallToolResult, RecommendOutput, error) {
	if missing := in.Request.MissingFields(); len(missing) > 0 {
		return nil, RecommendOutput{}, fmt.Errorf("%w: missing %v", refine.ErrInvalidRequest, missing)
	}
	req := outfit.Request{
		RequestInfo: in.Request,
		Weather:     refine.WeatherText(ctx, t.Weather, in.Request.Context.LocationOrDefault()),
		Exclude:     in.Exclude,
		Considering: in.Considering,
	}
	pair, err := t.Recommender.Recommend(ctx, req)
	if err != nil {
		return nil, RecommendOutput{}, err
	}
	return nil, RecommendOutput{Pair: pair, Weather: req.Weather}, nil
}

func parseOptions(labels []string) ([]outfit.Option, error) {
	opts := make([]outfit.Option, 0, len(labels))
	for _, l := range labels {
		o, err := outfit.ParseOption(l)
		if err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, nil
}
