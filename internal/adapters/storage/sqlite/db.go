package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bounty-webhooks/internal/domain/events"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS bounty_snapshots (
	id           INTEGER PRIMARY KEY,
	status       TEXT NOT NULL,
	claimed_by   TEXT NULL,
	submitted_at TEXT NULL,
	completed_at TEXT NULL
);

CREATE TABLE IF NOT EXISTS delivery_log (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id     TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	webhook_id   TEXT NOT NULL,
	url          TEXT NOT NULL,
	status       TEXT NOT NULL,
	attempts     INTEGER NOT NULL,
	status_code  INTEGER NULL,
	error        TEXT NOT NULL,
	delivered_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS webhooks (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	events      TEXT NOT NULL,
	active      INTEGER NOT NULL,
	secret      TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// Open abre (o crea) la base en path con WAL, busy_timeout y synchronous=NORMAL,
// y crea el esquema. Una sola conexión: hay un único escritor por proceso.
func Open(path string) (*sql.DB, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

// OpenMemory abre una base en memoria (tests y STORAGE_DRIVER=sqlite sin path).
func OpenMemory() (*sql.DB, error) {
	return Open(memoryPath)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: bad timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func joinEvents(evs []events.EventType) string {
	parts := make([]string, 0, len(evs))
	for _, e := range evs {
		parts = append(parts, string(e))
	}
	return strings.Join(parts, ",")
}

func splitEvents(s string) []events.EventType {
	out := []events.EventType{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, events.EventType(p))
		}
	}
	return out
}
