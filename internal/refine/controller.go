// Package refine runs the outfit refinement loop: present a pair, take the
// user's selection and feedback, file items into the wardrobe and the
// shopping list, and ask for a new pair that repeats none of the earlier ones.
package refine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/ai-stylist/internal/classify"
	"github.com/fpang/ai-stylist/internal/metrics"
	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/route"
	"github.com/fpang/ai-stylist/internal/store"
	"github.com/fpang/ai-stylist/internal/weather"
)

var (
	// ErrNoSelection is returned when an operation needs at least one checked option.
	ErrNoSelection = errors.New("no recommendation option selected")
	// ErrNoRecommendation is returned when the session is not presenting a pair.
	ErrNoRecommendation = errors.New("no recommendation is being presented")
	// ErrBusy is returned when another operation holds the session.
	ErrBusy = errors.New("session is busy")
	// ErrInvalidRequest is returned when a top-level request lacks required fields.
	ErrInvalidRequest = errors.New("invalid recommendation request")
	// ErrPersistence is returned in strict mode when routed items could not be stored.
	ErrPersistence = errors.New("failed to store routed items")
	// ErrRecommendation is returned when the recommender fails during a cycle.
	ErrRecommendation = errors.New("recommendation request failed")
)

// Recommender produces recommendation pairs.
type Recommender interface {
	Recommend(ctx context.Context, req outfit.Request) (outfit.Pair, error)
}

// WeatherService looks up current weather for a location.
type WeatherService interface {
	Current(ctx context.Context, location string) (*weather.Report, error)
}

// Config wires a Controller to its collaborators.
type Config struct {
	Recommender Recommender
	Weather     WeatherService
	Classifier  classify.Classifier
	Items       store.ItemStore
	History     store.HistoryStore

	// StrictPersist aborts a cycle when routed items fail to persist,
	// before the current pair joins the exclusion history.
	StrictPersist bool

	// Now overrides the clock used for group IDs.
	Now func() time.Time
}

// Controller drives sessions through the refinement loop. It holds no
// per-session state and is safe for concurrent use.
type Controller struct {
	recommender Recommender
	weather     WeatherService
	classifier  classify.Classifier
	items       store.ItemStore
	history     store.HistoryStore
	strict      bool
	now         func() time.Time
}

// NewController creates a Controller. Weather and History may be nil.
func NewController(cfg Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		recommender: cfg.Recommender,
		weather:     cfg.Weather,
		classifier:  cfg.Classifier,
		items:       cfg.Items,
		history:     cfg.History,
		strict:      cfg.StrictPersist,
		now:         now,
	}
}

// Notice reports a persistence failure that did not stop the cycle.
type Notice struct {
	Destination string `json:"destination"`
	Message     string `json:"message"`
}

// CycleResult describes one refinement cycle.
type CycleResult struct {
	Missing  []outfit.Category     `json:"missingCategories"`
	Shopping []outfit.CategoryItem `json:"shoppingItems"`
	Wardrobe []outfit.CategoryItem `json:"wardrobeItems"`
	Notices  []Notice              `json:"notices,omitempty"`
	Session  View                  `json:"session"`
}

// WardrobeResult describes an Add to Wardrobe action.
type WardrobeResult struct {
	Count int                   `json:"count"`
	Items []outfit.CategoryItem `json:"items"`
}

func lock(s *Session) error {
	if !s.mu.TryLock() {
		return ErrBusy
	}
	return nil
}

// Start begins a new top-level request: it looks up the weather, asks for a
// pair and presents it. The exclusion history starts over. If the
// recommender fails the session is left as it was.
func (c *Controller) Start(ctx context.Context, s *Session, info outfit.RequestInfo) (View, error) {
	if missing := info.MissingFields(); len(missing) > 0 {
		return View{}, fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if err := lock(s); err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()

	weatherText := c.lookupWeather(ctx, info.Context.LocationOrDefault())
	pair, err := c.recommender.Recommend(ctx, outfit.Request{RequestInfo: info, Weather: weatherText})
	if err != nil {
		return s.view(), fmt.Errorf("%w: %w", ErrRecommendation, err)
	}

	s.Request = info
	s.Weather = weatherText
	s.Pair = pair
	s.History = nil
	s.Selection.Clear()
	s.Feedback = ""
	s.State = Presenting
	s.HistoryRecordID = c.saveHistory(ctx, s)

	log.Info().
		Str("sessionId", s.ID).
		Str("summaryA", pair.A.Summary).
		Str("summaryB", pair.B.Summary).
		Msg("Session started")
	return s.view(), nil
}

// Select replaces the selection with options.
func (c *Controller) Select(s *Session, options []outfit.Option) (View, error) {
	return c.edit(s, func() {
		s.Selection = outfit.NewSelection(options...)
	})
}

// Toggle flips one option.
func (c *Controller) Toggle(s *Session, o outfit.Option) (View, error) {
	return c.edit(s, func() {
		s.Selection.Toggle(o)
	})
}

// SetFeedback replaces the feedback text. It is stored as typed and trimmed
// when used.
func (c *Controller) SetFeedback(s *Session, text string) (View, error) {
	return c.edit(s, func() {
		s.Feedback = text
	})
}

func (c *Controller) edit(s *Session, apply func()) (View, error) {
	if err := lock(s); err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()
	if s.State != Presenting {
		return s.view(), ErrNoRecommendation
	}
	apply()
	return s.view(), nil
}

// Refine runs one refinement cycle. With a selection and non-blank feedback
// the feedback is classified; missing categories send the selected items to
// the shopping list and the rest to the wardrobe, both stored concurrently.
// The current pair then joins the exclusion history and a new pair is
// requested with the full history. Selection and feedback are cleared only
// when the new pair arrives.
func (c *Controller) Refine(ctx context.Context, s *Session) (*CycleResult, error) {
	if err := lock(s); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	if s.State != Presenting {
		return nil, ErrNoRecommendation
	}

	start := time.Now()
	s.State = Refining
	defer func() { s.State = Presenting }()

	res := &CycleResult{
		Missing:  []outfit.Category{},
		Shopping: []outfit.CategoryItem{},
		Wardrobe: []outfit.CategoryItem{},
	}
	feedback := strings.TrimSpace(s.Feedback)

	if !s.Selection.Empty() && feedback != "" {
		missing := c.classifier.Classify(ctx, feedback, selectedOptions(s))
		if missing.Len() > 0 {
			res.Missing = missing.Sorted()
			meta := outfit.NewGroupMeta(c.now(), s.Request.Style, s.Request.Context.Date, s.Weather)
			res.Shopping, res.Wardrobe = route.Route(s.Selection.Options(), s.Pair, missing, meta)
			res.Notices = c.persist(ctx, s.OwnerID, res.Shopping, res.Wardrobe)

			if c.strict && len(res.Notices) > 0 {
				s.State = Presenting
				res.Session = s.view()
				return res, ErrPersistence
			}
		}
	}
	if !s.Selection.Empty() {
		c.recordSelection(ctx, s)
	}

	s.History = append(s.History, s.Pair.Summaries())
	req := outfit.Request{
		RequestInfo: s.Request,
		Weather:     s.Weather,
		Exclude:     slices.Clone(s.History),
		Considering: feedback,
	}
	pair, err := c.recommender.Recommend(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("sessionId", s.ID).Int("history", len(s.History)).Msg("Refinement request failed, keeping current pair")
		s.State = Presenting
		res.Session = s.view()
		return res, fmt.Errorf("%w: %w", ErrRecommendation, err)
	}

	s.Pair = pair
	s.Selection.Clear()
	s.Feedback = ""
	s.State = Presenting
	s.HistoryRecordID = c.saveHistory(ctx, s)
	res.Session = s.view()

	metrics.New(metrics.Namespace).
		Dimension("Operation", "refine").
		Duration("RefineLatencyMs", start).
		Metric("MissingCategories", float64(len(res.Missing)), metrics.UnitCount).
		Metric("ShoppingItems", float64(len(res.Shopping)), metrics.UnitCount).
		Metric("WardrobeItems", float64(len(res.Wardrobe)), metrics.UnitCount).
		Metric("PersistFailures", float64(len(res.Notices)), metrics.UnitCount).
		Property("historyLength", len(s.History)).
		Flush()

	log.Info().
		Str("sessionId", s.ID).
		Strs("missing", outfit.NewCategorySet(res.Missing...).Strings()).
		Int("shopping", len(res.Shopping)).
		Int("wardrobe", len(res.Wardrobe)).
		Int("history", len(s.History)).
		Msg("Refinement cycle complete")
	return res, nil
}

// AddToWardrobe stores every non-sentinel item of the selected options in
// the wardrobe as one batch. Failure leaves the session unchanged.
func (c *Controller) AddToWardrobe(ctx context.Context, s *Session) (*WardrobeResult, error) {
	if err := lock(s); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	if s.State != Presenting {
		return nil, ErrNoRecommendation
	}
	if s.Selection.Empty() {
		return nil, ErrNoSelection
	}

	meta := outfit.NewGroupMeta(c.now(), s.Request.Style, s.Request.Context.Date, s.Weather)
	items := route.Collect(s.Selection.Options(), s.Pair, meta)
	res := &WardrobeResult{Items: items}
	if len(items) == 0 {
		return res, nil
	}

	n, err := c.items.AppendItems(ctx, s.OwnerID, store.KindWardrobe, items)
	if err != nil {
		return nil, fmt.Errorf("add to wardrobe: %w", err)
	}
	res.Count = n
	c.recordSelection(ctx, s)

	log.Info().Str("sessionId", s.ID).Int("count", n).Strs("options", s.Selection.Labels()).Msg("Added to wardrobe")
	return res, nil
}

// End returns the session to Idle and clears everything but its identity.
func (c *Controller) End(s *Session) error {
	if err := lock(s); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.State = Idle
	s.Request = outfit.RequestInfo{}
	s.Weather = ""
	s.Pair = outfit.Pair{}
	s.Selection.Clear()
	s.Feedback = ""
	s.History = nil
	s.HistoryRecordID = ""
	return nil
}

// persist stores both routed lists concurrently. Both writes are attempted
// regardless of the other's outcome; failures come back as notices.
func (c *Controller) persist(ctx context.Context, ownerID string, shopping, wardrobe []outfit.CategoryItem) []Notice {
	targets := []struct {
		kind  store.Kind
		items []outfit.CategoryItem
	}{
		{store.KindShopping, shopping},
		{store.KindWardrobe, wardrobe},
	}
	errs := make([]error, len(targets))

	var g errgroup.Group
	for i, t := range targets {
		if len(t.items) == 0 {
			continue
		}
		g.Go(func() error {
			_, errs[i] = c.items.AppendItems(ctx, ownerID, t.kind, t.items)
			return errs[i]
		})
	}
	_ = g.Wait()

	var notices []Notice
	for i, err := range errs {
		if err == nil {
			continue
		}
		log.Error().Err(err).Str("ownerId", ownerID).Str("kind", string(targets[i].kind)).Int("items", len(targets[i].items)).Msg("Failed to persist routed items")
		notices = append(notices, Notice{Destination: string(targets[i].kind), Message: err.Error()})
	}
	return notices
}

func (c *Controller) lookupWeather(ctx context.Context, location string) string {
	return WeatherText(ctx, c.weather, location)
}

// WeatherText looks up location and formats the result, or returns
// weather.Unavailable when ws is nil or the lookup fails.
func WeatherText(ctx context.Context, ws WeatherService, location string) string {
	if ws == nil {
		return weather.Unavailable
	}
	report, err := ws.Current(ctx, location)
	if err != nil {
		if !errors.Is(err, weather.ErrNotConfigured) {
			log.Warn().Err(err).Str("location", location).Msg("Weather lookup failed")
		}
		return weather.Unavailable
	}
	return weather.Format(report)
}

// saveHistory stores the presented pair and returns the record ID, or ""
// when there is no history store or the write failed.
func (c *Controller) saveHistory(ctx context.Context, s *Session) string {
	if c.history == nil || s.OwnerID == "" {
		return ""
	}
	rec := &store.HistoryRecord{
		RequestInfo:     s.Request,
		Weather:         s.Weather,
		RecommendationA: s.Pair.A,
		RecommendationB: s.Pair.B,
	}
	if err := c.history.AppendHistory(ctx, s.OwnerID, rec); err != nil {
		log.Warn().Err(err).Str("sessionId", s.ID).Msg("Failed to save recommendation history")
		return ""
	}
	return rec.ID
}

func (c *Controller) recordSelection(ctx context.Context, s *Session) {
	if c.history == nil || s.HistoryRecordID == "" {
		return
	}
	if err := c.history.UpdateHistorySelection(ctx, s.OwnerID, s.HistoryRecordID, s.Selection.Labels()); err != nil {
		log.Warn().Err(err).Str("recordId", s.HistoryRecordID).Msg("Failed to record history selection")
	}
}

func selectedOptions(s *Session) map[outfit.Option]outfit.Recommendation {
	out := make(map[outfit.Option]outfit.Recommendation, 2)
	for _, o := range s.Selection.Options() {
		if r, ok := s.Pair.Option(o); ok {
			out[o] = r
		}
	}
	return out
}
