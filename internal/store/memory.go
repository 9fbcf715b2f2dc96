package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fpang/ai-stylist/internal/outfit"
)

// MemoryStore implements Store with process-local maps. It is the default
// for local runs and the backend used by handler and controller tests.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	owners   map[string]time.Time
	items    map[string][]Item // key: ownerID + "/" + kind, oldest first
	history  map[string][]HistoryRecord
	sessions map[string]SessionRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		owners:   make(map[string]time.Time),
		items:    make(map[string][]Item),
		history:  make(map[string][]HistoryRecord),
		sessions: make(map[string]SessionRecord),
	}
}

func itemKey(ownerID string, kind Kind) string { return ownerID + "/" + string(kind) }

// requireOwner must be called with mu held.
func (m *MemoryStore) requireOwner(id string) error {
	if _, ok := m.owners[id]; !ok {
		return ErrOwnerNotFound
	}
	return nil
}

func (m *MemoryStore) CreateOwner(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.owners[id] = m.now()
	return id, nil
}

func (m *MemoryStore) OwnerExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.owners[id]
	return ok, nil
}

func (m *MemoryStore) AddItem(ctx context.Context, ownerID string, kind Kind, item outfit.CategoryItem) (*Item, error) {
	stored, err := m.appendItems(ownerID, kind, []outfit.CategoryItem{item})
	if err != nil {
		return nil, err
	}
	return &stored[0], nil
}

func (m *MemoryStore) AppendItems(_ context.Context, ownerID string, kind Kind, items []outfit.CategoryItem) (int, error) {
	stored, err := m.appendItems(ownerID, kind, items)
	return len(stored), err
}

func (m *MemoryStore) appendItems(ownerID string, kind Kind, items []outfit.CategoryItem) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwner(ownerID); err != nil {
		return nil, err
	}
	stored, err := toItems(ownerID, kind, items, m.now())
	if err != nil {
		return nil, err
	}
	key := itemKey(ownerID, kind)
	m.items[key] = append(m.items[key], stored...)
	return stored, nil
}

func (m *MemoryStore) ListItems(_ context.Context, ownerID string, kind Kind) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwner(ownerID); err != nil {
		return nil, err
	}
	out := slices.Clone(m.items[itemKey(ownerID, kind)])
	slices.Reverse(out)
	if out == nil {
		out = []Item{}
	}
	return out, nil
}

func (m *MemoryStore) AppendHistory(_ context.Context, ownerID string, rec *HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwner(ownerID); err != nil {
		return err
	}
	now := m.now()
	rec.ID = newID(now)
	rec.OwnerID = ownerID
	rec.CreatedAt = now.UTC()
	if rec.SelectedOptions == nil {
		rec.SelectedOptions = []string{}
	}
	m.history[ownerID] = append(m.history[ownerID], *rec)
	return nil
}

func (m *MemoryStore) ListHistory(_ context.Context, ownerID string) ([]HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwner(ownerID); err != nil {
		return nil, err
	}
	out := slices.Clone(m.history[ownerID])
	slices.Reverse(out)
	if out == nil {
		out = []HistoryRecord{}
	}
	return out, nil
}

func (m *MemoryStore) UpdateHistorySelection(_ context.Context, ownerID, recordID string, options []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwner(ownerID); err != nil {
		return err
	}
	records := m.history[ownerID]
	for i := range records {
		if records[i].ID == recordID {
			records[i].SelectedOptions = slices.Clone(options)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) PutSession(_ context.Context, s *SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.ID].Version != s.Version {
		return fmt.Errorf("%w: session %s", ErrConflict, s.ID)
	}
	s.UpdatedAt = m.now().Unix()
	s.Version++
	m.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if m.now().Unix() > s.UpdatedAt+int64(SessionTTL/time.Second) {
		delete(m.sessions, id)
		return nil, nil
	}
	c := cloneSession(s)
	return &c, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Close implements Store. There is nothing to release.
func (m *MemoryStore) Close() error { return nil }

func cloneSession(s SessionRecord) SessionRecord {
	s.Selected = slices.Clone(s.Selected)
	s.History = slices.Clone(s.History)
	return s
}
