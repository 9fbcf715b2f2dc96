package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/fpang/ai-stylist/internal/refine"
	"github.com/fpang/ai-stylist/internal/store"
)

const maxBodyBytes = 1 << 20

// uuidRegex matches UUID v4 format: 8-4-4-4-12 lowercase hex with dashes.
var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func validateID(field, id string) error {
	if !uuidRegex.MatchString(id) {
		return fmt.Errorf("invalid %s: must be a UUID (e.g., a1b2c3d4-e5f6-7890-abcd-ef1234567890)", field)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// httpError sends a JSON error response. The clientMsg is returned to the
// caller; internal details are logged server-side only.
func httpError(w http.ResponseWriter, r *http.Request, status int, clientMsg string, internal ...error) {
	if len(internal) > 0 && internal[0] != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(internal[0]).
			Int("status", status).
			Str("clientMsg", clientMsg).
			Msg("HTTP error with internal details")
	}
	respondJSON(w, status, map[string]string{"error": clientMsg})
}

// domainError maps package sentinel errors to HTTP responses. Anything
// unrecognised is a 500 with a generic message.
func domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrOwnerNotFound):
		httpError(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, store.ErrNotFound):
		httpError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalidItem),
		errors.Is(err, refine.ErrInvalidRequest),
		errors.Is(err, refine.ErrNoSelection):
		httpError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		httpError(w, r, http.StatusConflict, "session was changed by another request; reload it and retry")
	case errors.Is(err, refine.ErrNoRecommendation), errors.Is(err, refine.ErrBusy):
		httpError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, refine.ErrRecommendation):
		httpError(w, r, http.StatusBadGateway, "failed to get recommendation", err)
	default:
		httpError(w, r, http.StatusInternalServerError, "internal error", err)
	}
}

// decodeJSON reads a size-limited JSON body into dst. An empty body leaves
// dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
