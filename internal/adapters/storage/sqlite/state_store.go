package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"bounty-webhooks/internal/domain/bounties"
	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/events"
	"bounty-webhooks/internal/domain/state"
)

type StateStore struct {
	db *sql.DB
}

func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

func (s *StateStore) Load(ctx context.Context) (state.State, error) {
	st := state.Empty()

	rows, err := s.db.QueryContext(ctx, `SELECT id, status, claimed_by, submitted_at, completed_at FROM bounty_snapshots`)
	if err != nil {
		return state.State{}, err
	}
	for rows.Next() {
		var (
			snap                              bounties.Snapshot
			claimedBy, submittedAt, completed sql.NullString
		)
		if err := rows.Scan(&snap.ID, &snap.Status, &claimedBy, &submittedAt, &completed); err != nil {
			rows.Close()
			return state.State{}, err
		}
		snap.ClaimedBy = fromNull(claimedBy)
		snap.SubmittedAt = fromNull(submittedAt)
		snap.CompletedAt = fromNull(completed)
		st.KnownBounties[snap.ID] = snap
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return state.State{}, err
	}
	// una sola conexión: hay que liberarla antes de la siguiente consulta
	rows.Close()

	logRows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, webhook_id, url, status, attempts, status_code, error, delivered_at
		FROM delivery_log
		ORDER BY seq ASC
	`)
	if err != nil {
		return state.State{}, err
	}
	defer logRows.Close()

	for logRows.Next() {
		var (
			e               deliveries.Entry
			typ, stat, when string
			statusCode      sql.NullInt64
		)
		if err := logRows.Scan(&e.EventID, &typ, &e.SubscriberID, &e.URL, &stat, &e.Attempts, &statusCode, &e.Error, &when); err != nil {
			return state.State{}, err
		}
		ts, err := parseTime(when)
		if err != nil {
			return state.State{}, err
		}
		e.Timestamp = ts
		e.EventType = events.EventType(typ)
		e.Status = deliveries.Status(stat)
		if statusCode.Valid {
			c := int(statusCode.Int64)
			e.StatusCode = &c
		}
		st.DeliveryLog = append(st.DeliveryLog, e)
	}
	return st, logRows.Err()
}

// Save escribe snapshots (upsert) y reemplaza el log en una transacción.
func (s *StateStore) Save(ctx context.Context, st state.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for id, snap := range st.KnownBounties {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bounty_snapshots (id, status, claimed_by, submitted_at, completed_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				status = excluded.status,
				claimed_by = excluded.claimed_by,
				submitted_at = excluded.submitted_at,
				completed_at = excluded.completed_at
		`, id, snap.Status, toNull(snap.ClaimedBy), toNull(snap.SubmittedAt), toNull(snap.CompletedAt)); err != nil {
			return fmt.Errorf("upsert snapshot %d: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM delivery_log`); err != nil {
		return err
	}

	for _, e := range st.DeliveryLog {
		var code sql.NullInt64
		if e.StatusCode != nil {
			code = sql.NullInt64{Int64: int64(*e.StatusCode), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO delivery_log (event_id, event_type, webhook_id, url, status, attempts, status_code, error, delivered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			e.EventID,
			string(e.EventType),
			e.SubscriberID,
			e.URL,
			string(e.Status),
			e.Attempts,
			code,
			e.Error,
			formatTime(e.Timestamp),
		); err != nil {
			return fmt.Errorf("insert delivery %s: %w", e.EventID, err)
		}
	}

	return tx.Commit()
}

func toNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
