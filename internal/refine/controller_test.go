package refine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fpang/ai-stylist/internal/classify"
	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/store"
	"github.com/fpang/ai-stylist/internal/weather"
)

// fakeRecommender returns numbered pairs and records every request.
type fakeRecommender struct {
	mu       sync.Mutex
	requests []outfit.Request
	failFrom int // fail every call numbered >= failFrom when > 0
}

func (f *fakeRecommender) Recommend(_ context.Context, req outfit.Request) (outfit.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	if f.failFrom > 0 && n >= f.failFrom {
		return outfit.Pair{}, errors.New("model unavailable")
	}
	return outfit.Pair{
		A: outfit.Recommendation{
			Summary: fmt.Sprintf("look A%d", n),
			Top:     "white tee",
			Bottom:  "black slacks",
			Shoes:   "white sneakers",
			Belt:    outfit.NotApplicable,
		},
		B: outfit.Recommendation{
			Summary: fmt.Sprintf("look B%d", n),
			Top:     "white tee",
			Outer:   "navy blazer",
			Shoes:   "brown loafers",
			Hat:     "해당 없음",
		},
	}, nil
}

type fakeWeather struct {
	report *weather.Report
	err    error
}

func (f fakeWeather) Current(context.Context, string) (*weather.Report, error) {
	return f.report, f.err
}

// failingItems wraps a store and fails writes to one collection.
type failingItems struct {
	store.Store
	failKind store.Kind
}

func (f failingItems) AppendItems(ctx context.Context, ownerID string, kind store.Kind, items []outfit.CategoryItem) (int, error) {
	if kind == f.failKind {
		return 0, errors.New("throttled")
	}
	return f.Store.AppendItems(ctx, ownerID, kind, items)
}

var testRequest = outfit.RequestInfo{
	Context: outfit.Context{Date: "2026-10-15", Location: "서울"},
	Style:   outfit.StyleRequest{Item: "슬랙스", TPO: "출근", Mood: "미니멀"},
}

type harness struct {
	ctl   *Controller
	rec   *fakeRecommender
	store *store.MemoryStore
	sess  *Session
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	mem := store.NewMemoryStore()
	owner, err := mem.CreateOwner(context.Background())
	require.NoError(t, err)

	rec := &fakeRecommender{}
	if cfg.Recommender == nil {
		cfg.Recommender = rec
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classify.NewKeyword(classify.DefaultLexicon())
	}
	if cfg.Items == nil {
		cfg.Items = mem
	}
	if cfg.History == nil {
		cfg.History = mem
	}
	if cfg.Weather == nil {
		cfg.Weather = fakeWeather{report: &weather.Report{City: "Seoul", Temperature: 12, Description: "맑음"}}
	}
	cfg.Now = func() time.Time { return time.UnixMilli(1_760_000_000_000) }

	return &harness{
		ctl:   NewController(cfg),
		rec:   rec,
		store: mem,
		sess:  NewSession("sess-1", owner),
	}
}

func (h *harness) items(t *testing.T, kind store.Kind) []store.Item {
	t.Helper()
	items, err := h.store.ListItems(context.Background(), h.sess.OwnerID, kind)
	require.NoError(t, err)
	return items
}

func TestStart(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	view, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)
	require.Equal(t, Presenting, view.State)
	require.Equal(t, "look A1", view.Pair.A.Summary)
	require.Equal(t, "맑음, 기온 12°C", view.Weather)
	require.Empty(t, view.History)
	require.NotEmpty(t, view.HistoryRecordID)

	require.Equal(t, "맑음, 기온 12°C", h.rec.requests[0].Weather)
	require.Empty(t, h.rec.requests[0].Exclude)

	history, err := h.store.ListHistory(ctx, h.sess.OwnerID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestStartRejectsIncompleteRequest(t *testing.T) {
	h := newHarness(t, Config{})
	_, err := h.ctl.Start(context.Background(), h.sess, outfit.RequestInfo{})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Empty(t, h.rec.requests, "no external call on a precondition failure")
	require.Equal(t, Idle, h.sess.State)
}

func TestStartWithoutWeather(t *testing.T) {
	h := newHarness(t, Config{Weather: fakeWeather{err: weather.ErrNotConfigured}})
	view, err := h.ctl.Start(context.Background(), h.sess, testRequest)
	require.NoError(t, err)
	require.Equal(t, weather.Unavailable, view.Weather)
}

func TestEditsRequirePresenting(t *testing.T) {
	h := newHarness(t, Config{})
	_, err := h.ctl.Toggle(h.sess, outfit.OptionA)
	require.ErrorIs(t, err, ErrNoRecommendation)
	_, err = h.ctl.Refine(context.Background(), h.sess)
	require.ErrorIs(t, err, ErrNoRecommendation)
}

func TestRefineRoutesMissingCategories(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	_, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)

	_, err = h.ctl.Select(h.sess, []outfit.Option{outfit.OptionA})
	require.NoError(t, err)
	_, err = h.ctl.SetFeedback(h.sess, "  blue jacket, don't have shoes  ")
	require.NoError(t, err)

	res, err := h.ctl.Refine(ctx, h.sess)
	require.NoError(t, err)
	require.Equal(t, []outfit.Category{outfit.Shoes}, res.Missing)
	require.Len(t, res.Shopping, 1)
	require.Equal(t, "white sneakers", res.Shopping[0].Description)
	require.Len(t, res.Wardrobe, 2)
	require.Empty(t, res.Notices)

	shopping := h.items(t, store.KindShopping)
	require.Len(t, shopping, 1)
	require.Equal(t, "미니멀 출근", shopping[0].GroupName)
	require.Equal(t, "1760000000000", shopping[0].GroupID)
	require.Len(t, h.items(t, store.KindWardrobe), 2)

	// The new request excludes the previous pair and carries trimmed feedback.
	last := h.rec.requests[len(h.rec.requests)-1]
	require.Equal(t, []outfit.SummaryPair{{A: "look A1", B: "look B1"}}, last.Exclude)
	require.Equal(t, "blue jacket, don't have shoes", last.Considering)

	// Transient state resets on success.
	require.Equal(t, Presenting, res.Session.State)
	require.Empty(t, res.Session.Selected)
	require.Empty(t, res.Session.Feedback)
	require.Equal(t, "look A2", res.Session.Pair.A.Summary)

	history, err := h.store.ListHistory(ctx, h.sess.OwnerID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, []string{"A"}, history[1].SelectedOptions)
}

func TestRefineWithoutFeedbackSkipsClassification(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	_, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)
	_, err = h.ctl.Select(h.sess, []outfit.Option{outfit.OptionB})
	require.NoError(t, err)

	res, err := h.ctl.Refine(ctx, h.sess)
	require.NoError(t, err)
	require.Empty(t, res.Missing)
	require.Empty(t, h.items(t, store.KindWardrobe))
	require.Len(t, res.Session.History, 1)
}

func TestRefineHistoryAccumulates(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	_, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)

	const cycles = 4
	for range cycles {
		_, err := h.ctl.Refine(ctx, h.sess)
		require.NoError(t, err)
	}

	require.Len(t, h.sess.History, cycles)
	require.Len(t, h.rec.requests, cycles+1)
	for i, req := range h.rec.requests {
		require.Len(t, req.Exclude, i, "request %d carries the full history", i)
	}
	require.Equal(t, outfit.SummaryPair{A: "look A4", B: "look B4"}, h.sess.History[cycles-1])

	// A new top-level request starts over.
	_, err = h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)
	require.Empty(t, h.sess.History)
}

func TestRefineRecommendationFailureKeepsPair(t *testing.T) {
	rec := &fakeRecommender{failFrom: 2}
	h := newHarness(t, Config{Recommender: rec})
	ctx := context.Background()
	_, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)
	_, err = h.ctl.Select(h.sess, []outfit.Option{outfit.OptionA})
	require.NoError(t, err)
	_, err = h.ctl.SetFeedback(h.sess, "벨트 없어")
	require.NoError(t, err)

	res, err := h.ctl.Refine(ctx, h.sess)
	require.ErrorIs(t, err, ErrRecommendation)
	require.Equal(t, Presenting, res.Session.State)
	require.Equal(t, "look A1", res.Session.Pair.A.Summary)
	require.Equal(t, []string{"A"}, res.Session.Selected, "selection survives a failed cycle")
	require.Len(t, res.Session.History, 1, "history append is not rolled back")
}

func TestRefinePersistenceFailure(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		wantErr error
		history int
	}{
		{"permissive", false, nil, 1},
		{"strict", true, ErrPersistence, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemoryStore()
			h := newHarness(t, Config{
				Items:         failingItems{Store: mem, failKind: store.KindShopping},
				StrictPersist: tt.strict,
			})
			// The failing wrapper writes to its own store; use an owner it knows.
			owner, err := mem.CreateOwner(context.Background())
			require.NoError(t, err)
			h.sess.OwnerID = owner

			ctx := context.Background()
			_, err = h.ctl.Start(ctx, h.sess, testRequest)
			require.NoError(t, err)
			_, err = h.ctl.Select(h.sess, []outfit.Option{outfit.OptionA})
			require.NoError(t, err)
			_, err = h.ctl.SetFeedback(h.sess, "신발 없어요 don't have shoes")
			require.NoError(t, err)

			res, err := h.ctl.Refine(ctx, h.sess)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, res.Notices, 1)
			require.Equal(t, "shopping", res.Notices[0].Destination)
			require.Len(t, h.sess.History, tt.history)

			wardrobe, err := mem.ListItems(ctx, owner, store.KindWardrobe)
			require.NoError(t, err)
			require.Len(t, wardrobe, 2, "the other list is still written")
		})
	}
}

func TestAddToWardrobe(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	_, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)

	_, err = h.ctl.AddToWardrobe(ctx, h.sess)
	require.ErrorIs(t, err, ErrNoSelection)

	_, err = h.ctl.Select(h.sess, []outfit.Option{outfit.OptionA, outfit.OptionB})
	require.NoError(t, err)
	res, err := h.ctl.AddToWardrobe(ctx, h.sess)
	require.NoError(t, err)
	// white tee appears in both options but is stored once.
	require.Equal(t, 5, res.Count)
	require.Len(t, h.items(t, store.KindWardrobe), 5)
	require.Equal(t, Presenting, h.sess.State)
}

func TestAddToWardrobeFailureLeavesState(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	_, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)
	_, err = h.ctl.Toggle(h.sess, outfit.OptionB)
	require.NoError(t, err)

	h.sess.OwnerID = "unknown-owner"
	_, err = h.ctl.AddToWardrobe(ctx, h.sess)
	require.ErrorIs(t, err, store.ErrOwnerNotFound)
	require.Equal(t, []string{"B"}, h.sess.View().Selected)
}

func TestEnd(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	_, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)
	_, err = h.ctl.Refine(ctx, h.sess)
	require.NoError(t, err)

	require.NoError(t, h.ctl.End(h.sess))
	view := h.sess.View()
	require.Equal(t, Idle, view.State)
	require.Nil(t, view.Pair)
	require.Empty(t, view.History)
	require.Equal(t, "sess-1", view.ID)
}

func TestBusySession(t *testing.T) {
	h := newHarness(t, Config{})
	h.sess.mu.Lock()
	defer h.sess.mu.Unlock()

	_, err := h.ctl.Start(context.Background(), h.sess, testRequest)
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, h.ctl.End(h.sess), ErrBusy)
}

func TestRecordRoundTrip(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	_, err := h.ctl.Start(ctx, h.sess, testRequest)
	require.NoError(t, err)
	_, err = h.ctl.Toggle(h.sess, outfit.OptionB)
	require.NoError(t, err)
	_, err = h.ctl.SetFeedback(h.sess, "모자 없어")
	require.NoError(t, err)

	restored, err := FromRecord(h.sess.Record())
	require.NoError(t, err)
	require.Equal(t, h.sess.View(), restored.View())

	rec := h.sess.Record()
	rec.State = "refining"
	restored, err = FromRecord(rec)
	require.NoError(t, err)
	require.Equal(t, Presenting, restored.State)

	rec.Selected = []string{"C"}
	_, err = FromRecord(rec)
	require.Error(t, err)
}
