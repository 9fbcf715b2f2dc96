package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fpang/ai-stylist/internal/classify"
	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/refine"
	"github.com/fpang/ai-stylist/internal/store"
	"github.com/fpang/ai-stylist/internal/weather"
)

type stubRecommender struct {
	calls    int
	requests []outfit.Request
}

func (s *stubRecommender) Recommend(_ context.Context, req outfit.Request) (outfit.Pair, error) {
	s.calls++
	s.requests = append(s.requests, req)
	pair := outfit.FallbackPair()
	pair.A.Summary = pair.A.Summary + " " + string(rune('0'+s.calls))
	return pair, nil
}

type stubWeather struct{}

func (stubWeather) Current(context.Context, string) (*weather.Report, error) {
	return &weather.Report{City: "Seoul", Temperature: 18, Description: "흐림"}, nil
}

type testServer struct {
	handler http.Handler
	store   *store.MemoryStore
	rec     *stubRecommender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemoryStore()
	rec := &stubRecommender{}
	cls := classify.NewKeyword(classify.DefaultLexicon())
	ctl := refine.NewController(refine.Config{
		Recommender: rec,
		Weather:     stubWeather{},
		Classifier:  cls,
		Items:       mem,
		History:     mem,
	})
	srv := New(Deps{
		Controller:  ctl,
		Recommender: rec,
		Weather:     stubWeather{},
		Classifier:  cls,
		Store:       mem,
		Version:     "test",
	})
	return &testServer{handler: srv.Handler(), store: mem, rec: rec}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (ts *testServer) createUser(t *testing.T) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/api/users", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	return decode[map[string]string](t, rr)["id"]
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	require.Equal(t, "test", decode[map[string]string](t, rr)["version"])
}

func TestItemsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)

	rr := ts.do(t, http.MethodPost, "/api/wardrobe", map[string]string{
		"userId": user, "category": "Shoes", "itemDescription": "white sneakers",
		"groupId": "1", "groupName": "캐주얼 데이트",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodPost, "/api/wardrobe/bulk", map[string]any{
		"userId": user,
		"items": []map[string]string{
			{"category": "top", "itemDescription": "oxford shirt", "groupId": "2", "groupName": "출근"},
			{"category": "bottom", "itemDescription": "grey slacks", "groupId": "2", "groupName": "출근"},
		},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, 2, decode[map[string]int](t, rr)["count"])

	rr = ts.do(t, http.MethodGet, "/api/wardrobe?userId="+user, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	items := decode[[]store.Item](t, rr)
	require.Len(t, items, 3)
	require.Equal(t, "grey slacks", items[0].Description)

	rr = ts.do(t, http.MethodGet, "/api/wardrobe?group=true&userId="+user, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	groups := decode[[]ItemGroup](t, rr)
	require.Len(t, groups, 2)
	require.Equal(t, "출근", groups[0].GroupName)
	require.Len(t, groups[0].Items, 2)

	rr = ts.do(t, http.MethodGet, "/api/shopping-list?userId="+user, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]\n", rr.Body.String())
}

func TestItemsValidation(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing userId", http.MethodGet, "/api/wardrobe", nil, http.StatusBadRequest},
		{"malformed userId", http.MethodGet, "/api/wardrobe?userId=abc", nil, http.StatusBadRequest},
		{"unknown user", http.MethodGet, "/api/history?userId=0b6f2a3c-9a51-4a53-8d7e-2f4f4a6f1c11", nil, http.StatusNotFound},
		{"missing fields", http.MethodPost, "/api/shopping-list", map[string]string{"userId": user}, http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/api/shopping-list", map[string]string{"userId": user, "category": "socks", "itemDescription": "wool"}, http.StatusBadRequest},
		{"empty bulk", http.MethodPost, "/api/wardrobe/bulk", map[string]any{"userId": user}, http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/api/wardrobe", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestHistoryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)
	pair := outfit.FallbackPair()

	rr := ts.do(t, http.MethodPost, "/api/history", map[string]any{
		"userId":          user,
		"weather":         "맑음, 기온 20°C",
		"recommendationA": pair.A,
		"recommendationB": pair.B,
		"selectedOptions": []string{"A"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodGet, "/api/history?userId="+user, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	records := decode[[]store.HistoryRecord](t, rr)
	require.Len(t, records, 1)
	require.Equal(t, []string{"A"}, records[0].SelectedOptions)
}

func TestRecommendAndAnalyze(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/api/recommend", map[string]any{
		"context": map[string]string{"date": "2026-10-15", "location": "부산"},
		"request": map[string]string{"item": "코트", "tpo": "데이트", "mood": "로맨틱"},
		"previousRecommendations": []map[string]string{
			{"summary": "old A"}, {"summary": "old B"},
		},
		"considering": "밝은 색",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[recommendResponse](t, rr)
	require.Equal(t, "흐림, 기온 18°C", got.Weather)
	require.NotEmpty(t, got.A.Summary)
	require.Equal(t, []outfit.SummaryPair{{A: "old A", B: "old B"}}, ts.rec.requests[0].Exclude)

	rr = ts.do(t, http.MethodPost, "/api/analyze-text", map[string]any{"text": "벨트 없어요"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"belt"}, decode[map[string][]string](t, rr)["missingCategories"])

	rr = ts.do(t, http.MethodPost, "/api/analyze-text", map[string]any{"text": ""})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, decode[map[string][]string](t, rr)["missingCategories"])
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)

	rr := ts.do(t, http.MethodPost, "/api/sessions", map[string]any{
		"userId":  user,
		"context": map[string]string{"date": "2026-10-15", "location": "서울"},
		"style":   map[string]string{"item": "데님", "tpo": "주말", "mood": "캐주얼"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	view := decode[refine.View](t, rr)
	require.Equal(t, refine.Presenting, view.State)
	base := "/api/sessions/" + view.ID
	q := "?userId=" + user

	rr = ts.do(t, http.MethodPut, base+"/selection"+q, map[string]any{"options": []string{"A"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.do(t, http.MethodPut, base+"/feedback"+q, map[string]string{"text": "신발 없어요"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodGet, base+q, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view = decode[refine.View](t, rr)
	require.Equal(t, []string{"A"}, view.Selected)
	require.Equal(t, "신발 없어요", view.Feedback)

	rr = ts.do(t, http.MethodPost, base+"/refine"+q, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[refine.CycleResult](t, rr)
	require.Equal(t, []outfit.Category{outfit.Shoes}, res.Missing)
	require.Len(t, res.Session.History, 1)
	require.Empty(t, res.Session.Selected)

	shopping, err := ts.store.ListItems(context.Background(), user, store.KindShopping)
	require.NoError(t, err)
	require.Len(t, shopping, 1)

	rr = ts.do(t, http.MethodPost, base+"/wardrobe"+q, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code, "no selection after a completed cycle")

	rr = ts.do(t, http.MethodPut, base+"/selection"+q, map[string]string{"toggle": "b"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, http.MethodPost, base+"/wardrobe"+q, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Positive(t, decode[refine.WardrobeResult](t, rr).Count)

	rr = ts.do(t, http.MethodDelete, base+q, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(t, http.MethodGet, base+q, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSessionValidation(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)

	rr := ts.do(t, http.MethodPost, "/api/sessions", map[string]any{"userId": user})
	require.Equal(t, http.StatusBadRequest, rr.Code, "incomplete request")
	require.Zero(t, ts.rec.calls)

	rr = ts.do(t, http.MethodGet, "/api/sessions/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodPut, "/api/sessions/0b6f2a3c-9a51-4a53-8d7e-2f4f4a6f1c11/selection", map[string]string{"toggle": "C"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionBusy(t *testing.T) {
	ts := newTestServer(t)
	srv := New(Deps{Store: ts.store})
	id := "0b6f2a3c-9a51-4a53-8d7e-2f4f4a6f1c11"

	release, ok := srv.locks.tryLock(id)
	require.True(t, ok)
	defer release()

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"?userId="+id, nil))
	require.Equal(t, http.StatusConflict, rr.Code)
}

func (ts *testServer) startSession(t *testing.T, user string) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/api/sessions", map[string]any{
		"userId":  user,
		"context": map[string]string{"date": "2026-10-15", "location": "서울"},
		"style":   map[string]string{"item": "셔츠", "tpo": "출근", "mood": "미니멀"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[refine.View](t, rr).ID
}

func TestSessionOwnership(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.createUser(t)
	other := ts.createUser(t)
	base := "/api/sessions/" + ts.startSession(t, owner)

	rr := ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code, "userId is required")

	rr = ts.do(t, http.MethodPut, base+"/feedback?userId="+other, map[string]string{"text": "벨트 없어요"})
	require.Equal(t, http.StatusNotFound, rr.Code)
	rr = ts.do(t, http.MethodDelete, base+"?userId="+other, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodGet, base+"?userId="+owner, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, decode[refine.View](t, rr).Feedback)
}

// racingStore saves a competing snapshot right after every session load,
// as another instance sharing the table would.
type racingStore struct {
	*store.MemoryStore
}

func (rs racingStore) GetSession(ctx context.Context, id string) (*store.SessionRecord, error) {
	rec, err := rs.MemoryStore.GetSession(ctx, id)
	if rec != nil {
		other := *rec
		other.Feedback = "from another instance"
		if err := rs.MemoryStore.PutSession(ctx, &other); err != nil {
			return nil, err
		}
	}
	return rec, err
}

func TestSessionConcurrentSaveConflicts(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t)
	id := ts.startSession(t, user)

	cls := classify.NewKeyword(classify.DefaultLexicon())
	racing := racingStore{ts.store}
	srv := New(Deps{
		Controller: refine.NewController(refine.Config{
			Recommender: ts.rec,
			Weather:     stubWeather{},
			Classifier:  cls,
			Items:       racing,
			History:     racing,
		}),
		Recommender: ts.rec,
		Weather:     stubWeather{},
		Classifier:  cls,
		Store:       racing,
	})

	req := httptest.NewRequest(http.MethodPut, "/api/sessions/"+id+"/feedback?userId="+user,
		bytes.NewBufferString(`{"text":"신발 없어요"}`))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), "reload")

	rec, err := ts.store.GetSession(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "from another instance", rec.Feedback)
}

func TestKeyedLocksRelease(t *testing.T) {
	k := newKeyedLocks()
	release, ok := k.tryLock("s")
	require.True(t, ok)
	_, ok = k.tryLock("s")
	require.False(t, ok)
	release()
	require.Empty(t, k.locks)

	release, ok = k.tryLock("s")
	require.True(t, ok)
	release()
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"/api/health": "/api/health",
		"/api/sessions/0b6f2a3c-9a51-4a53-8d7e-2f4f4a6f1c11/refine": "/api/sessions/*/refine",
		"/api/shopping-list/bulk":                                  "/api/shopping-list/bulk",
	}
	for in, want := range tests {
		require.Equal(t, want, normalizeEndpoint(in), in)
	}
}

func TestCORS(t *testing.T) {
	srv := New(Deps{Store: store.NewMemoryStore(), AllowedOrigins: []string{"https://stylist.example.com"}})
	h := srv.Handler()

	for origin, allowed := range map[string]bool{
		"https://stylist.example.com": true,
		"http://localhost:3000":       true,
		"https://evil.example.com":    false,
	} {
		req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
		if allowed {
			require.Equal(t, origin, rr.Header().Get("Access-Control-Allow-Origin"))
		} else {
			require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
		}
	}
}
