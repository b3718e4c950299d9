package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bounty-webhooks/internal/domain/subscribers"
)

type SubscribersRepo struct {
	db *sql.DB
}

func NewSubscribersRepo(db *sql.DB) *SubscribersRepo {
	return &SubscribersRepo{db: db}
}

func (r *SubscribersRepo) Create(ctx context.Context, s subscribers.Subscriber) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhooks (
			id, url, events, active,
			secret, description,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		s.ID,
		s.URL,
		joinEvents(s.Events),
		s.Active,
		s.Secret,
		s.Description,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (r *SubscribersRepo) Update(ctx context.Context, s subscribers.Subscriber) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE webhooks SET
			url = $2,
			events = $3,
			active = $4,
			secret = $5,
			description = $6,
			updated_at = $7
		WHERE id = $1
	`,
		s.ID,
		s.URL,
		joinEvents(s.Events),
		s.Active,
		s.Secret,
		s.Description,
		s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *SubscribersRepo) GetByID(ctx context.Context, id string) (subscribers.Subscriber, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return subscribers.Subscriber{}, subscribers.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, url, events, active, secret, description, created_at, updated_at
		FROM webhooks
		WHERE id = $1
	`, id)

	s, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return subscribers.Subscriber{}, subscribers.ErrNotFound
	}
	return s, err
}

func (r *SubscribersRepo) List(ctx context.Context) ([]subscribers.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url, events, active, secret, description, created_at, updated_at
		FROM webhooks
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []subscribers.Subscriber{}
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SubscribersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(sc scanner) (subscribers.Subscriber, error) {
	var (
		s   subscribers.Subscriber
		evs string
	)
	if err := sc.Scan(&s.ID, &s.URL, &evs, &s.Active, &s.Secret, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return subscribers.Subscriber{}, err
	}
	s.Events = splitEvents(evs)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return subscribers.ErrNotFound
	}
	return nil
}
