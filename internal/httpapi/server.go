// Package httpapi exposes the stylist over a JSON HTTP API. The same
// handler serves the local web server and the Lambda function.
//
// Endpoints:
//
//	GET    /api/health                    - health check
//	POST   /api/users                     - create an owner
//	POST   /api/recommend                 - one-shot recommendation
//	POST   /api/analyze-text              - classify feedback text
//	GET    /api/wardrobe?userId=&group=   - list (or group) the wardrobe
//	POST   /api/wardrobe                  - add one wardrobe item
//	POST   /api/wardrobe/bulk             - add wardrobe items
//	GET    /api/shopping-list?userId=     - list the shopping list
//	POST   /api/shopping-list             - add one shopping-list item
//	POST   /api/shopping-list/bulk        - add shopping-list items
//	GET    /api/history?userId=           - recommendation history
//	POST   /api/history                   - save a history record
//	POST   /api/sessions                  - start a refinement session
//	GET    /api/sessions/{id}             - session state
//	PUT    /api/sessions/{id}/selection   - set or toggle selected options
//	PUT    /api/sessions/{id}/feedback    - set feedback text
//	POST   /api/sessions/{id}/refine      - run a refinement cycle
//	POST   /api/sessions/{id}/wardrobe    - add the selected outfit to the wardrobe
//	DELETE /api/sessions/{id}             - end the session
package httpapi

import (
	"context"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/fpang/ai-stylist/internal/classify"
	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/refine"
	"github.com/fpang/ai-stylist/internal/store"
)

// Deps are the collaborators the handlers call.
type Deps struct {
	Controller  *refine.Controller
	Recommender refine.Recommender
	Weather     refine.WeatherService
	Classifier  classify.Classifier
	Store       store.Store

	AllowedOrigins []string
	// Version is reported by the health endpoint.
	Version string
}

// Server holds the handlers' dependencies.
type Server struct {
	deps  Deps
	locks *keyedLocks
}

// New creates a Server.
func New(deps Deps) *Server {
	return &Server{deps: deps, locks: newKeyedLocks()}
}

// Handler returns the routed handler wrapped in the standard middleware:
// gzip, request logging, EMF metrics and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/users", s.handleCreateUser)

	mux.HandleFunc("POST /api/recommend", s.handleRecommend)
	mux.HandleFunc("POST /api/analyze-text", s.handleAnalyzeText)

	mux.HandleFunc("GET /api/wardrobe", s.handleListItems(store.KindWardrobe))
	mux.HandleFunc("POST /api/wardrobe", s.handleAddItem(store.KindWardrobe))
	mux.HandleFunc("POST /api/wardrobe/bulk", s.handleBulkItems(store.KindWardrobe))
	mux.HandleFunc("GET /api/shopping-list", s.handleListItems(store.KindShopping))
	mux.HandleFunc("POST /api/shopping-list", s.handleAddItem(store.KindShopping))
	mux.HandleFunc("POST /api/shopping-list/bulk", s.handleBulkItems(store.KindShopping))

	mux.HandleFunc("GET /api/history", s.handleListHistory)
	mux.HandleFunc("POST /api/history", s.handleSaveHistory)

	mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PUT /api/sessions/{id}/selection", s.handleSelection)
	mux.HandleFunc("PUT /api/sessions/{id}/feedback", s.handleFeedback)
	mux.HandleFunc("POST /api/sessions/{id}/refine", s.handleRefine)
	mux.HandleFunc("POST /api/sessions/{id}/wardrobe", s.handleSessionWardrobe)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)

	return gzhttp.GzipHandler(withLogging(withMetrics(withCORS(s.deps.AllowedOrigins)(mux))))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.deps.Version,
	})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Store.CreateOwner(r.Context())
	if err != nil {
		domainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// --- Stateless endpoints ---

type recommendBody struct {
	UserInfo outfit.Profile      `json:"userInfo"`
	Context  outfit.Context      `json:"context"`
	Request  outfit.StyleRequest `json:"request"`
	// PreviousRecommendations are earlier options in A, B order.
	PreviousRecommendations []outfit.Recommendation `json:"previousRecommendations,omitempty"`
	Considering             string                  `json:"considering,omitempty"`
}

type recommendResponse struct {
	outfit.Pair
	Weather string `json:"weather"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var body recommendBody
	if err := decodeJSON(w, r, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	weatherText := s.weatherFor(r.Context(), body.Context.LocationOrDefault())
	pair, err := s.deps.Recommender.Recommend(r.Context(), outfit.Request{
		RequestInfo: outfit.RequestInfo{Profile: body.UserInfo, Context: body.Context, Style: body.Request},
		Weather:     weatherText,
		Exclude:     pairSummaries(body.PreviousRecommendations),
		Considering: body.Considering,
	})
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "failed to get recommendation", err)
		return
	}
	respondJSON(w, http.StatusOK, recommendResponse{Pair: pair, Weather: weatherText})
}

// pairSummaries folds consecutive options into exclusion entries.
func pairSummaries(recs []outfit.Recommendation) []outfit.SummaryPair {
	var out []outfit.SummaryPair
	for i := 0; i < len(recs); i += 2 {
		p := outfit.SummaryPair{A: recs[i].Summary}
		if i+1 < len(recs) {
			p.B = recs[i+1].Summary
		}
		out = append(out, p)
	}
	return out
}

type analyzeBody struct {
	Text          string                                  `json:"text"`
	SelectedItems map[outfit.Option]outfit.Recommendation `json:"selectedItems"`
}

// handleAnalyzeText never fails on classification; a bad body is the only
// error.
func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var body analyzeBody
	if err := decodeJSON(w, r, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	missing := s.deps.Classifier.Classify(r.Context(), body.Text, body.SelectedItems)
	respondJSON(w, http.StatusOK, map[string][]string{"missingCategories": missing.Strings()})
}

func (s *Server) weatherFor(ctx context.Context, location string) string {
	return refine.WeatherText(ctx, s.deps.Weather, location)
}
