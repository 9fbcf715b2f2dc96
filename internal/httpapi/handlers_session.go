package httpapi

import (
	"bytes"
	"errors"
	"maps"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/refine"
	"github.com/fpang/ai-stylist/internal/store"
)

// keyedLocks gives each session ID its own mutex so one session runs one
// operation at a time while different sessions proceed independently.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyedLock)}
}

// tryLock acquires the lock for id without waiting. The returned release
// func must be called exactly once when ok is true.
func (k *keyedLocks) tryLock(id string) (release func(), ok bool) {
	k.mu.Lock()
	l, exists := k.locks[id]
	if !exists {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	if !l.mu.TryLock() {
		k.drop(id, l)
		return nil, false
	}
	return func() {
		l.mu.Unlock()
		k.drop(id, l)
	}, true
}

func (k *keyedLocks) drop(id string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
}

// withSession loads the session named in the path, runs fn under the
// session's lock and saves the result. fn reports whether the session
// changed and should be written back.
//
// The caller names itself with the userId query parameter. A session owned
// by someone else is reported as not found. keyedLocks only serialises
// requests inside this process; across instances the store's version check
// catches a concurrent save, and the caller gets 409 instead of fn's
// response.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(w http.ResponseWriter, sess *refine.Session) (save bool)) {
	id := r.PathValue("id")
	if err := validateID("sessionId", id); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	userID := r.URL.Query().Get("userId")
	if err := validateID("userId", userID); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := s.locks.tryLock(id)
	if !ok {
		domainError(w, r, refine.ErrBusy)
		return
	}
	defer release()

	rec, err := s.deps.Store.GetSession(r.Context(), id)
	if err != nil {
		domainError(w, r, err)
		return
	}
	if rec == nil || rec.OwnerID != userID {
		httpError(w, r, http.StatusNotFound, "session not found")
		return
	}
	sess, err := refine.FromRecord(rec)
	if err != nil {
		domainError(w, r, err)
		return
	}

	pending := newPendingResponse()
	if fn(pending, sess) {
		err := s.deps.Store.PutSession(r.Context(), sess.Record())
		switch {
		case errors.Is(err, store.ErrConflict):
			domainError(w, r, err)
			return
		case err != nil:
			// The operation already ran; the client still gets its result.
			zerolog.Ctx(r.Context()).Error().Err(err).Str("sessionId", id).Msg("Failed to save session")
		}
	}
	pending.writeTo(w)
}

// pendingResponse holds a response until the session it describes is saved.
type pendingResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newPendingResponse() *pendingResponse {
	return &pendingResponse{header: make(http.Header)}
}

func (p *pendingResponse) Header() http.Header { return p.header }

func (p *pendingResponse) WriteHeader(status int) {
	if p.status == 0 {
		p.status = status
	}
}

func (p *pendingResponse) Write(b []byte) (int, error) {
	p.WriteHeader(http.StatusOK)
	return p.body.Write(b)
}

func (p *pendingResponse) writeTo(w http.ResponseWriter) {
	maps.Copy(w.Header(), p.header)
	p.WriteHeader(http.StatusOK)
	w.WriteHeader(p.status)
	w.Write(p.body.Bytes())
}

type startSessionBody struct {
	UserID string `json:"userId"`
	outfit.RequestInfo
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionBody
	if err := decodeJSON(w, r, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateID("userId", body.UserID); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	exists, err := s.deps.Store.OwnerExists(r.Context(), body.UserID)
	if err != nil {
		domainError(w, r, err)
		return
	}
	if !exists {
		httpError(w, r, http.StatusNotFound, "user not found")
		return
	}

	sess := refine.NewSession(uuid.NewString(), body.UserID)
	view, err := s.deps.Controller.Start(r.Context(), sess, body.RequestInfo)
	if err != nil {
		domainError(w, r, err)
		return
	}
	if err := s.deps.Store.PutSession(r.Context(), sess.Record()); err != nil {
		httpError(w, r, http.StatusInternalServerError, "failed to save session", err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(w http.ResponseWriter, sess *refine.Session) bool {
		respondJSON(w, http.StatusOK, sess.View())
		return false
	})
}

type selectionBody struct {
	// Options replaces the whole selection when present.
	Options *[]string `json:"options,omitempty"`
	// Toggle flips one option.
	Toggle string `json:"toggle,omitempty"`
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var body selectionBody
	if err := decodeJSON(w, r, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if body.Options == nil && body.Toggle == "" {
		httpError(w, r, http.StatusBadRequest, "options or toggle is required")
		return
	}

	var options []outfit.Option
	if body.Options != nil {
		for _, label := range *body.Options {
			o, err := outfit.ParseOption(label)
			if err != nil {
				httpError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			options = append(options, o)
		}
	}
	var toggle outfit.Option
	if body.Toggle != "" {
		o, err := outfit.ParseOption(body.Toggle)
		if err != nil {
			httpError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		toggle = o
	}

	s.withSession(w, r, func(w http.ResponseWriter, sess *refine.Session) bool {
		var view refine.View
		var err error
		if body.Options != nil {
			view, err = s.deps.Controller.Select(sess, options)
		} else {
			view, err = s.deps.Controller.Toggle(sess, toggle)
		}
		if err != nil {
			domainError(w, r, err)
			return false
		}
		respondJSON(w, http.StatusOK, view)
		return true
	})
}

type feedbackBody struct {
	Text string `json:"text"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var body feedbackBody
	if err := decodeJSON(w, r, &body); err != nil {
		httpError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.withSession(w, r, func(w http.ResponseWriter, sess *refine.Session) bool {
		view, err := s.deps.Controller.SetFeedback(sess, body.Text)
		if err != nil {
			domainError(w, r, err)
			return false
		}
		respondJSON(w, http.StatusOK, view)
		return true
	})
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(w http.ResponseWriter, sess *refine.Session) bool {
		res, err := s.deps.Controller.Refine(r.Context(), sess)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, res)
			return true
		case res != nil && errors.Is(err, refine.ErrPersistence):
			// Strict mode: the cycle stopped before the history append.
			respondJSON(w, http.StatusInternalServerError, struct {
				Error string `json:"error"`
				*refine.CycleResult
			}{err.Error(), res})
			return true
		case res != nil && errors.Is(err, refine.ErrRecommendation):
			// The history append stands; keep it.
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Refinement request failed")
			respondJSON(w, http.StatusBadGateway, struct {
				Error string `json:"error"`
				*refine.CycleResult
			}{"failed to get recommendation", res})
			return true
		default:
			domainError(w, r, err)
			return false
		}
	})
}

func (s *Server) handleSessionWardrobe(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(w http.ResponseWriter, sess *refine.Session) bool {
		res, err := s.deps.Controller.AddToWardrobe(r.Context(), sess)
		if err != nil {
			domainError(w, r, err)
			return false
		}
		respondJSON(w, http.StatusOK, res)
		return false
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(w http.ResponseWriter, sess *refine.Session) bool {
		if err := s.deps.Controller.End(sess); err != nil {
			domainError(w, r, err)
			return false
		}
		if err := s.deps.Store.DeleteSession(r.Context(), sess.ID); err != nil {
			domainError(w, r, err)
			return false
		}
		w.WriteHeader(http.StatusNoContent)
		return false
	})
}
