package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"bounty-webhooks/internal/domain/events"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS bounty_snapshots (
	id           BIGINT PRIMARY KEY,
	status       TEXT NOT NULL,
	claimed_by   TEXT NULL,
	submitted_at TEXT NULL,
	completed_at TEXT NULL
);

CREATE TABLE IF NOT EXISTS delivery_log (
	seq          BIGSERIAL PRIMARY KEY,
	event_id     TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	webhook_id   TEXT NOT NULL,
	url          TEXT NOT NULL,
	status       TEXT NOT NULL,
	attempts     INTEGER NOT NULL,
	status_code  INTEGER NULL,
	error        TEXT NOT NULL,
	delivered_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS webhooks (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	events      TEXT NOT NULL,
	active      BOOLEAN NOT NULL,
	secret      TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema crea las tablas si no existen.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// los tipos de evento se guardan como "bounty.created,bounty.claimed"
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
