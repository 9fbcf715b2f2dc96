package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/store"
)

// ownerFromQuery reads and validates ?userId=.
func ownerFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("userId")
	if id == "" {
		httpError(w, r, http.StatusBadRequest, "userId is required")
		return "", false
	}
	if err := validateID("userId", id); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

// itemBody is one item as posted by clients.
type itemBody struct {
	Category     string `json:"category"`
	Description  string `json:"itemDescription"`
	GroupID      string `json:"groupId,omitempty"`
	GroupName    string `json:"groupName,omitempty"`
	GroupDate    string `json:"groupDate,omitempty"`
	GroupWeather string `json:"groupWeather,omitempty"`
	GroupTPO     string `json:"groupTPO,omitempty"`
}

func (b itemBody) item() outfit.CategoryItem {
	return outfit.CategoryItem{
		Category:    outfit.Category(strings.ToLower(strings.TrimSpace(b.Category))),
		Description: b.Description,
		GroupMeta: outfit.GroupMeta{
			ID:      b.GroupID,
			Name:    b.GroupName,
			Date:    b.GroupDate,
			Weather: b.GroupWeather,
			TPO:     b.GroupTPO,
		},
	}
}

type addItemBody struct {
	UserID string `json:"userId"`
	itemBody
}

type bulkItemsBody struct {
	UserID string     `json:"userId"`
	Items  []itemBody `json:"items"`
}

func (s *Server) handleAddItem(kind store.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addItemBody
		if err := decodeJSON(w, r, &body); err != nil {
			httpError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if body.UserID == "" || body.Category == "" || strings.TrimSpace(body.Description) == "" {
			httpError(w, r, http.StatusBadRequest, "missing required fields")
			return
		}
		if err := validateID("userId", body.UserID); err != nil {
			httpError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		item, err := s.deps.Store.AddItem(r.Context(), body.UserID, kind, body.item())
		if err != nil {
			domainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, item)
	}
}

func (s *Server) handleBulkItems(kind store.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body bulkItemsBody
		if err := decodeJSON(w, r, &body); err != nil {
			httpError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if body.UserID == "" || len(body.Items) == 0 {
			httpError(w, r, http.StatusBadRequest, "missing required fields")
			return
		}
		if err := validateID("userId", body.UserID); err != nil {
			httpError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		items := make([]outfit.CategoryItem, len(body.Items))
		for i, b := range body.Items {
			items[i] = b.item()
		}
		n, err := s.deps.Store.AppendItems(r.Context(), body.UserID, kind, items)
		if err != nil {
			domainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]int{"count": n})
	}
}

// ItemGroup is a set of wardrobe items added together.
type ItemGroup struct {
	GroupID   string       `json:"groupId"`
	GroupName string       `json:"groupName"`
	Date      string       `json:"date,omitempty"`
	Weather   string       `json:"weather,omitempty"`
	TPO       string       `json:"tpo,omitempty"`
	Items     []store.Item `json:"items"`
}

// groupItems groups items by group ID, keeping the order in which each
// group first appears. Items without a group share an ungrouped bucket.
func groupItems(items []store.Item) []ItemGroup {
	groups := []ItemGroup{}
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.GroupID]
		if !ok {
			name := it.GroupName
			if name == "" {
				name = outfit.DefaultGroupName
			}
			groups = append(groups, ItemGroup{
				GroupID:   it.GroupID,
				GroupName: name,
				Date:      it.GroupDate,
				Weather:   it.GroupWeather,
				TPO:       it.GroupTPO,
			})
			i = len(groups) - 1
			index[it.GroupID] = i
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

func (s *Server) handleListItems(kind store.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFromQuery(w, r)
		if !ok {
			return
		}
		items, err := s.deps.Store.ListItems(r.Context(), owner, kind)
		if err != nil {
			domainError(w, r, err)
			return
		}
		if group, _ := strconv.ParseBool(r.URL.Query().Get("group")); group {
			respondJSON(w, http.StatusOK, groupItems(items))
			return
		}
		respondJSON(w, http.StatusOK, items)
	}
}

// --- History ---

type historyBody struct {
	UserID          string                `json:"userId"`
	RequestInfo     outfit.RequestInfo    `json:"requestInfo"`
	Weather         string                `json:"weather"`
	RecommendationA outfit.Recommendation `json:"recommendationA"`
	RecommendationB outfit.Recommendation `json:"recommendationB"`
	SelectedOptions []string              `json:"selectedOptions"`
}

func (s *Server) handleSaveHistory(w http.ResponseWriter, r *http.Request) {
	var body historyBody
	if err := decodeJSON(w, r, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateID("userId", body.UserID); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	for _, o := range body.SelectedOptions {
		if _, err := outfit.ParseOption(o); err != nil {
			httpError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	rec := &store.HistoryRecord{
		RequestInfo:     body.RequestInfo,
		Weather:         body.Weather,
		RecommendationA: body.RecommendationA,
		RecommendationB: body.RecommendationB,
		SelectedOptions: body.SelectedOptions,
	}
	if err := s.deps.Store.AppendHistory(r.Context(), body.UserID, rec); err != nil {
		domainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromQuery(w, r)
	if !ok {
		return
	}
	records, err := s.deps.Store.ListHistory(r.Context(), owner)
	if err != nil {
		domainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}
