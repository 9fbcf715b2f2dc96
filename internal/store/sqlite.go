package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-stylist/internal/outfit"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS owners (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	owner_id      TEXT NOT NULL,
	kind          TEXT NOT NULL,
	category      TEXT NOT NULL,
	description   TEXT NOT NULL,
	group_id      TEXT DEFAULT '',
	group_name    TEXT DEFAULT '',
	group_date    TEXT DEFAULT '',
	group_weather TEXT DEFAULT '',
	group_tpo     TEXT DEFAULT '',
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_owner_kind ON items(owner_id, kind);

CREATE TABLE IF NOT EXISTS history (
	seq              INTEGER PRIMARY KEY AUTOINCREMENT,
	id               TEXT NOT NULL UNIQUE,
	owner_id         TEXT NOT NULL,
	request_info     TEXT NOT NULL,
	weather          TEXT DEFAULT '',
	recommendation_a TEXT NOT NULL,
	recommendation_b TEXT NOT NULL,
	selected_options TEXT NOT NULL DEFAULT '[]',
	created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_owner ON history(owner_id);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("SQLite store opened")
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) requireOwner(ctx context.Context, ownerID string) error {
	ok, err := s.OwnerExists(ctx, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOwnerNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateOwner(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO owners (id, created_at) VALUES (?, ?)`, id, s.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert owner: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) OwnerExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM owners WHERE id = ?`, id).Scan(&count)
	return count > 0, err
}

const insertItemSQL = `INSERT INTO items
	(id, owner_id, kind, category, description, group_id, group_name, group_date, group_weather, group_tpo, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) AddItem(ctx context.Context, ownerID string, kind Kind, item outfit.CategoryItem) (*Item, error) {
	stored, err := s.insertItems(ctx, ownerID, kind, []outfit.CategoryItem{item})
	if err != nil {
		return nil, err
	}
	return &stored[0], nil
}

func (s *SQLiteStore) AppendItems(ctx context.Context, ownerID string, kind Kind, items []outfit.CategoryItem) (int, error) {
	stored, err := s.insertItems(ctx, ownerID, kind, items)
	return len(stored), err
}

// insertItems writes the batch in one transaction so it lands all or nothing.
func (s *SQLiteStore) insertItems(ctx context.Context, ownerID string, kind Kind, items []outfit.CategoryItem) ([]Item, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	stored, err := toItems(ownerID, kind, items, s.now())
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertItemSQL)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, it := range stored {
		_, err := stmt.ExecContext(ctx,
			it.ID, ownerID, string(kind), it.Category, it.Description,
			it.GroupID, it.GroupName, it.GroupDate, it.GroupWeather, it.GroupTPO,
			it.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return nil, fmt.Errorf("insert item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, ownerID string, kind Kind) ([]Item, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, description, group_id, group_name, group_date, group_weather, group_tpo, created_at
		 FROM items WHERE owner_id = ? AND kind = ? ORDER BY seq DESC`,
		ownerID, string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it := Item{OwnerID: ownerID, Kind: kind}
		var created int64
		err := rows.Scan(
			&it.ID, &it.Category, &it.Description, &it.GroupID, &it.GroupName,
			&it.GroupDate, &it.GroupWeather, &it.GroupTPO, &created,
		)
		if err != nil {
			return nil, err
		}
		it.CreatedAt = time.UnixMilli(created).UTC()
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, ownerID string, rec *HistoryRecord) error {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return err
	}
	if rec.SelectedOptions == nil {
		rec.SelectedOptions = []string{}
	}
	info, err := json.Marshal(rec.RequestInfo)
	if err != nil {
		return err
	}
	recA, err := json.Marshal(rec.RecommendationA)
	if err != nil {
		return err
	}
	recB, err := json.Marshal(rec.RecommendationB)
	if err != nil {
		return err
	}
	sel, err := json.Marshal(rec.SelectedOptions)
	if err != nil {
		return err
	}

	now := s.now()
	id := newID(now)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (id, owner_id, request_info, weather, recommendation_a, recommendation_b, selected_options, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, string(info), rec.Weather, string(recA), string(recB), string(sel), now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	rec.ID = id
	rec.OwnerID = ownerID
	rec.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	return nil
}

func (s *SQLiteStore) ListHistory(ctx context.Context, ownerID string) ([]HistoryRecord, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_info, weather, recommendation_a, recommendation_b, selected_options, created_at
		 FROM history WHERE owner_id = ? ORDER BY seq DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		rec := HistoryRecord{OwnerID: ownerID}
		var info, recA, recB, sel string
		var created int64
		if err := rows.Scan(&rec.ID, &info, &rec.Weather, &recA, &recB, &sel, &created); err != nil {
			return nil, err
		}
		if err := unmarshalColumns(
			column{"request_info", info, &rec.RequestInfo},
			column{"recommendation_a", recA, &rec.RecommendationA},
			column{"recommendation_b", recB, &rec.RecommendationB},
			column{"selected_options", sel, &rec.SelectedOptions},
		); err != nil {
			return nil, fmt.Errorf("history %s: %w", rec.ID, err)
		}
		rec.CreatedAt = time.UnixMilli(created).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) UpdateHistorySelection(ctx context.Context, ownerID, recordID string, options []string) error {
	if options == nil {
		options = []string{}
	}
	sel, err := json.Marshal(options)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE history SET selected_options = ? WHERE owner_id = ? AND id = ?`,
		string(sel), ownerID, recordID,
	)
	if err != nil {
		return fmt.Errorf("update history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) PutSession(ctx context.Context, session *SessionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := storedVersion(ctx, tx, session.ID)
	if err != nil {
		return err
	}
	if current != session.Version {
		return fmt.Errorf("%w: session %s", ErrConflict, session.ID)
	}

	now := s.now()
	next := *session
	next.UpdatedAt = now.Unix()
	next.Version++
	payload, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, payload, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		session.ID, string(payload), sessionExpiry(now),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	*session = next
	return nil
}

// storedVersion reads the Version of a saved session, zero when absent.
func storedVersion(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	var payload string
	err := tx.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var stored struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		return 0, fmt.Errorf("decode session %s: %w", id, err)
	}
	return stored.Version, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	var payload string
	var expires int64
	err := s.db.QueryRowContext(ctx, `SELECT payload, expires_at FROM sessions WHERE id = ?`, id).Scan(&payload, &expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.now().Unix() > expires {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		return nil, nil
	}
	var session SessionRecord
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

type column struct {
	name string
	raw  string
	dst  any
}

func unmarshalColumns(cols ...column) error {
	for _, c := range cols {
		if err := json.Unmarshal([]byte(c.raw), c.dst); err != nil {
			return fmt.Errorf("decode %s: %w", c.name, err)
		}
	}
	return nil
}
