// Package sqlite archives emitted RSI events for the gateway's history API.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"rsi-engine/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// maxPrealloc caps the result slice capacity reserved up front.
const maxPrealloc = 256

// History is a single-connection SQLite archive of indicator events.
type History struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (h *History) DB() *sql.DB { return h.db }

// New opens (creating if needed) the database at path in WAL mode.
func New(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened history at %s", path)
	return &History{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rsi_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			token_address TEXT    NOT NULL,
			rsi           REAL    NOT NULL,
			price         REAL    NOT NULL,
			ts            TEXT    NOT NULL,
			received_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_rsi_history_token
			ON rsi_history (token_address, id);
	`)
	return err
}

// Append stores one event.
func (h *History) Append(ctx context.Context, ev model.IndicatorEvent) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO rsi_history (token_address, rsi, price, ts, received_at) VALUES (?, ?, ?, ?, ?)`,
		ev.TokenAddress, ev.RSI, ev.Price, ev.Timestamp, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite append %s: %w", ev.TokenAddress, err)
	}
	return nil
}

// Recent returns up to limit most recent events for token, oldest first.
func (h *History) Recent(ctx context.Context, token string, limit int) ([]model.IndicatorEvent, error) {
	if limit <= 0 {
		return []model.IndicatorEvent{}, nil
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT token_address, rsi, price, ts FROM (
			SELECT id, token_address, rsi, price, ts
			FROM rsi_history
			WHERE token_address = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, token, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite recent %s: %w", token, err)
	}
	defer rows.Close()

	out := make([]model.IndicatorEvent, 0, min(limit, maxPrealloc))
	for rows.Next() {
		var ev model.IndicatorEvent
		if err := rows.Scan(&ev.TokenAddress, &ev.RSI, &ev.Price, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}
