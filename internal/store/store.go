// Package store persists owners, wardrobe and shopping-list items,
// recommendation history and refinement session snapshots.
//
// Three backends implement Store: an in-memory map for local runs and
// tests, SQLite for a single-host deployment, and a single-table DynamoDB
// design for Lambda. In DynamoDB every per-owner record shares the partition
// key OWNER#{ownerId}; sort keys PROFILE, WARDROBE#, SHOPPING# and HISTORY#
// distinguish record types. Sessions live under SESSION#{sessionId} with a
// TTL attribute (expiresAt) so abandoned sessions expire on their own.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// SessionTTL is how long an untouched session snapshot is kept.
const SessionTTL = 24 * time.Hour

var (
	// ErrOwnerNotFound is returned when a call names an owner that was never created.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrNotFound is returned when an addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidItem is returned for items with an unknown category or no description.
	ErrInvalidItem = errors.New("invalid item")
	// ErrConflict is returned when a session was saved by another writer
	// since it was loaded.
	ErrConflict = errors.New("session changed concurrently")
)

// Kind names an item collection.
type Kind string

const (
	KindWardrobe Kind = "wardrobe"
	KindShopping Kind = "shopping"
)

// ParseKind validates a collection name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindWardrobe, KindShopping:
		return k, nil
	}
	return "", fmt.Errorf("unknown item collection %q", s)
}

// OwnerStore issues and checks owner identifiers.
type OwnerStore interface {
	// CreateOwner issues a new opaque owner ID.
	CreateOwner(ctx context.Context) (string, error)
	// OwnerExists reports whether id was issued by CreateOwner.
	OwnerExists(ctx context.Context, id string) (bool, error)
}

// ItemStore holds the wardrobe and the shopping list.
type ItemStore interface {
	// AddItem stores a single item.
	AddItem(ctx context.Context, ownerID string, kind Kind, item outfit.CategoryItem) (*Item, error)
	// AppendItems stores items as one batch and returns how many were stored.
	// The batch is validated as a whole before anything is written.
	AppendItems(ctx context.Context, ownerID string, kind Kind, items []outfit.CategoryItem) (int, error)
	// ListItems returns the collection newest first.
	ListItems(ctx context.Context, ownerID string, kind Kind) ([]Item, error)
}

// HistoryStore holds recommendation history.
type HistoryStore interface {
	// AppendHistory stores rec, assigning its ID and CreatedAt.
	AppendHistory(ctx context.Context, ownerID string, rec *HistoryRecord) error
	// ListHistory returns the owner's records newest first.
	ListHistory(ctx context.Context, ownerID string) ([]HistoryRecord, error)
	// UpdateHistorySelection records which options the user finally chose.
	UpdateHistorySelection(ctx context.Context, ownerID, recordID string, options []string) error
}

// SessionStore holds refinement session snapshots. GetSession returns
// (nil, nil) when the session does not exist.
//
// PutSession is a compare-and-set on Version: it succeeds only when the
// stored snapshot still carries s.Version (zero for a new session), then
// increments s.Version. Otherwise it returns ErrConflict and leaves s
// unchanged.
type SessionStore interface {
	PutSession(ctx context.Context, s *SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
}

// Store is the full persistence surface.
type Store interface {
	OwnerStore
	ItemStore
	HistoryStore
	SessionStore
	Close() error
}

// --- Domain records ---
//
// ID and OwnerID are derived from PK/SK in DynamoDB and excluded from the
// stored attributes (dynamodbav:"-").

// Item is a stored wardrobe or shopping-list entry.
type Item struct {
	ID           string    `json:"id" dynamodbav:"-"`
	OwnerID      string    `json:"userId" dynamodbav:"-"`
	Kind         Kind      `json:"kind" dynamodbav:"kind"`
	Category     string    `json:"category" dynamodbav:"category"`
	Description  string    `json:"itemDescription" dynamodbav:"itemDescription"`
	GroupID      string    `json:"groupId,omitempty" dynamodbav:"groupId,omitempty"`
	GroupName    string    `json:"groupName,omitempty" dynamodbav:"groupName,omitempty"`
	GroupDate    string    `json:"groupDate,omitempty" dynamodbav:"groupDate,omitempty"`
	GroupWeather string    `json:"groupWeather,omitempty" dynamodbav:"groupWeather,omitempty"`
	GroupTPO     string    `json:"groupTPO,omitempty" dynamodbav:"groupTPO,omitempty"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// HistoryRecord is one recommendation shown to an owner.
type HistoryRecord struct {
	ID              string                `json:"id" dynamodbav:"-"`
	OwnerID         string                `json:"userId" dynamodbav:"-"`
	RequestInfo     outfit.RequestInfo    `json:"requestInfo" dynamodbav:"requestInfo"`
	Weather         string                `json:"weather,omitempty" dynamodbav:"weather,omitempty"`
	RecommendationA outfit.Recommendation `json:"recommendationA" dynamodbav:"recommendationA"`
	RecommendationB outfit.Recommendation `json:"recommendationB" dynamodbav:"recommendationB"`
	SelectedOptions []string              `json:"selectedOptions" dynamodbav:"selectedOptions"`
	CreatedAt       time.Time             `json:"createdAt" dynamodbav:"createdAt"`
}

// SessionRecord is the persisted form of a refinement session.
type SessionRecord struct {
	ID              string               `json:"id" dynamodbav:"-"`
	OwnerID         string               `json:"ownerId" dynamodbav:"ownerId"`
	State           string               `json:"state" dynamodbav:"state"`
	Request         outfit.RequestInfo   `json:"request" dynamodbav:"request"`
	Weather         string               `json:"weather,omitempty" dynamodbav:"weather,omitempty"`
	Pair            outfit.Pair          `json:"pair" dynamodbav:"pair"`
	Selected        []string             `json:"selected,omitempty" dynamodbav:"selected,omitempty"`
	Feedback        string               `json:"feedback,omitempty" dynamodbav:"feedback,omitempty"`
	History         []outfit.SummaryPair `json:"history,omitempty" dynamodbav:"history,omitempty"`
	HistoryRecordID string               `json:"historyRecordId,omitempty" dynamodbav:"historyRecordId,omitempty"`
	UpdatedAt       int64                `json:"updatedAt" dynamodbav:"updatedAt"`
	Version         int64                `json:"version" dynamodbav:"version"`
}

// --- Shared helpers ---

// newID returns an identifier that sorts by creation time: a zero-padded
// millisecond timestamp followed by a random UUID.
func newID(now time.Time) string {
	return fmt.Sprintf("%013d-%s", now.UnixMilli(), uuid.NewString())
}

// toItems validates a batch and converts it into stored items.
func toItems(ownerID string, kind Kind, items []outfit.CategoryItem, now time.Time) ([]Item, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(items))
	for i, it := range items {
		if !it.Category.Valid() {
			return nil, fmt.Errorf("%w: item %d has category %q", ErrInvalidItem, i, it.Category)
		}
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			return nil, fmt.Errorf("%w: item %d has no description", ErrInvalidItem, i)
		}
		out = append(out, Item{
			ID:           newID(now),
			OwnerID:      ownerID,
			Kind:         kind,
			Category:     string(it.Category),
			Description:  desc,
			GroupID:      it.ID,
			GroupName:    it.Name,
			GroupDate:    it.Date,
			GroupWeather: it.Weather,
			GroupTPO:     it.TPO,
			CreatedAt:    now.UTC(),
		})
	}
	return out, nil
}

func sessionExpiry(now time.Time) int64 {
	return now.Add(SessionTTL).Unix()
}
