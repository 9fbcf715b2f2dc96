package refine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/store"
)

// State is where a session is in the refinement loop.
type State string

const (
	// Idle means no recommendation is active.
	Idle State = "idle"
	// Presenting means a pair is shown and selection and feedback may change.
	Presenting State = "presenting"
	// Refining means a new recommendation request is in flight.
	Refining State = "refining"
)

// Session is the state of one owner's refinement loop. Every controller
// operation holds mu for its whole duration, so a session has one writer.
type Session struct {
	mu sync.Mutex

	ID      string
	OwnerID string
	State   State
	Request outfit.RequestInfo
	Weather string
	Pair    outfit.Pair

	Selection outfit.Selection
	Feedback  string

	// History holds the summaries of every pair shown since Start. It only
	// grows until the next Start or End.
	History []outfit.SummaryPair

	// HistoryRecordID is the stored history record of the current pair.
	HistoryRecordID string

	// Version is the stored snapshot revision this session was loaded from.
	Version int64
}

// NewSession returns an idle session.
func NewSession(id, ownerID string) *Session {
	return &Session{ID: id, OwnerID: ownerID, State: Idle}
}

// View is a read-only copy of a session, safe to serialize.
type View struct {
	ID              string               `json:"id"`
	OwnerID         string               `json:"userId"`
	State           State                `json:"state"`
	Request         outfit.RequestInfo   `json:"request"`
	Weather         string               `json:"weather,omitempty"`
	Pair            *outfit.Pair         `json:"pair,omitempty"`
	Selected        []string             `json:"selected"`
	Feedback        string               `json:"feedback"`
	History         []outfit.SummaryPair `json:"history"`
	HistoryRecordID string               `json:"historyRecordId,omitempty"`
}

// View copies the session under its lock.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	v := View{
		ID:              s.ID,
		OwnerID:         s.OwnerID,
		State:           s.State,
		Request:         s.Request,
		Weather:         s.Weather,
		Selected:        s.Selection.Labels(),
		Feedback:        s.Feedback,
		History:         slices.Clone(s.History),
		HistoryRecordID: s.HistoryRecordID,
	}
	if s.State != Idle {
		p := s.Pair
		v.Pair = &p
	}
	if v.History == nil {
		v.History = []outfit.SummaryPair{}
	}
	return v
}

// Record converts the session into its persisted form.
func (s *Session) Record() *store.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &store.SessionRecord{
		ID:              s.ID,
		OwnerID:         s.OwnerID,
		State:           string(s.State),
		Request:         s.Request,
		Weather:         s.Weather,
		Pair:            s.Pair,
		Selected:        s.Selection.Labels(),
		Feedback:        s.Feedback,
		History:         slices.Clone(s.History),
		HistoryRecordID: s.HistoryRecordID,
		Version:         s.Version,
	}
}

// FromRecord rebuilds a session from its persisted form. A record caught
// mid-refinement is restored as Presenting, the last state it reached.
func FromRecord(r *store.SessionRecord) (*Session, error) {
	s := &Session{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Request:         r.Request,
		Weather:         r.Weather,
		Pair:            r.Pair,
		Feedback:        r.Feedback,
		History:         slices.Clone(r.History),
		HistoryRecordID: r.HistoryRecordID,
		Version:         r.Version,
	}
	switch State(r.State) {
	case Idle, "":
		s.State = Idle
	case Presenting, Refining:
		s.State = Presenting
	default:
		return nil, fmt.Errorf("session %s: unknown state %q", r.ID, r.State)
	}
	for _, label := range r.Selected {
		o, err := outfit.ParseOption(label)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", r.ID, err)
		}
		s.Selection.Set(o, true)
	}
	return s, nil
}
