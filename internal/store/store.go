// Package store persists relay tickets and usage counters in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const totalKey = "total_resizes"

// Ticket lets the image relay fetch one source image on behalf of a user.
type Ticket struct {
	ID        string
	URL       string
	Token     string
	ExpiresAt time.Time
}

// Stats is the usage summary exposed by the stats endpoint.
type Stats struct {
	Total int64 `json:"total"`
	Today int64 `json:"today"`
}

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Tickets ---

// PutTicket stores a ticket, replacing any ticket with the same id.
func (s *Store) PutTicket(ctx context.Context, t Ticket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, url, token, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			token = excluded.token,
			expires_at = excluded.expires_at
	`, t.ID, t.URL, t.Token, t.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put ticket: %w", err)
	}
	return nil
}

// GetTicket returns a live ticket. Expired and unknown tickets both report
// ok=false.
func (s *Store) GetTicket(ctx context.Context, id string) (Ticket, bool, error) {
	var (
		t       Ticket
		expires int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, token, expires_at FROM tickets WHERE id = ? AND expires_at > ?`,
		id, s.now().UnixMilli(),
	).Scan(&t.ID, &t.URL, &t.Token, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Ticket{}, false, nil
	}
	if err != nil {
		return Ticket{}, false, fmt.Errorf("get ticket: %w", err)
	}
	t.ExpiresAt = time.UnixMilli(expires)
	return t, true, nil
}

// PurgeTickets deletes expired tickets and returns how many were removed.
func (s *Store) PurgeTickets(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge tickets: %w", err)
	}
	return res.RowsAffected()
}

// --- Usage counters ---

// IncrementResizes adds n to the running total and to today's counter.
// Days are UTC calendar dates.
func (s *Store) IncrementResizes(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, key := range []string{totalKey, dailyKey(s.now())} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stats (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = value + excluded.value
		`, key, n); err != nil {
			return fmt.Errorf("increment %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Stats returns the all-time and today counters. Missing counters are 0.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM stats WHERE key IN (?, ?)`, totalKey, dailyKey(s.now()))
	if err != nil {
		return st, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key   string
			value int64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return st, fmt.Errorf("scan stats: %w", err)
		}
		if key == totalKey {
			st.Total = value
		} else {
			st.Today = value
		}
	}
	return st, rows.Err()
}

func dailyKey(t time.Time) string {
	return "daily:" + t.UTC().Format(time.DateOnly)
}
