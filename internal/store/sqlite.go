package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warpdl/warpsched/pkg/logger"
	"github.com/warpdl/warpsched/pkg/schedule"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS plugin_config (
    name       TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transitions (
    id         TEXT PRIMARY KEY,
    at         INTEGER NOT NULL,
    from_level INTEGER NOT NULL,
    to_level   INTEGER NOT NULL,
    trigger    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS transitions_at ON transitions(at);
`

// Transition is a persisted level change.
type Transition struct {
	ID      string         `json:"id"`
	At      time.Time      `json:"at"`
	From    schedule.Level `json:"from"`
	To      schedule.Level `json:"to"`
	Trigger string         `json:"trigger"`
}

// SQLiteStore keeps the configuration in a plugin_config row and records
// transitions in a history table.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, l logger.Logger) (*SQLiteStore, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open database: %w", err)
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: cannot create schema: %w", err)
	}
	return &SQLiteStore{db: db, log: l, now: time.Now}, nil
}

func (s *SQLiteStore) Load() (*schedule.Config, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM plugin_config WHERE name = ?`, PluginName).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error: failed to query config: %w", err)
	}
	var c schedule.Config
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("error: failed to decode config: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) Save(c *schedule.Config) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = s.db.Exec(`
        INSERT INTO plugin_config (name, data, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
    `, PluginName, string(data), s.now().Unix())
	if err != nil {
		return fmt.Errorf("error: failed to save config: %w", err)
	}
	return nil
}

// Record appends t to the history. Failures are logged, not returned.
func (s *SQLiteStore) Record(t schedule.Transition) {
	_, err := s.db.Exec(
		`INSERT INTO transitions (id, at, from_level, to_level, trigger) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), t.At.UnixNano(), int(t.From), int(t.To), t.Trigger,
	)
	if err != nil {
		s.log.Error("Failed to record transition %s -> %s: %v", t.From, t.To, err)
	}
}

// History returns up to limit transitions, newest first. A limit of 0 or
// less returns all of them.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, at, from_level, to_level, trigger
        FROM transitions
        ORDER BY at DESC, rowid DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query history: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		var (
			tr       Transition
			at       int64
			from, to int
		)
		if err := rows.Scan(&tr.ID, &at, &from, &to, &tr.Trigger); err != nil {
			return nil, fmt.Errorf("error: failed to scan history row: %w", err)
		}
		tr.At = time.Unix(0, at)
		tr.From, tr.To = schedule.Level(from), schedule.Level(to)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate history rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
