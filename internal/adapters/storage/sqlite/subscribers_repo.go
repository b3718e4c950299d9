package sqlite

import (
	"context"
	"database/sql"
	"errors"

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
		INSERT INTO webhooks (id, url, events, active, secret, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID,
		s.URL,
		joinEvents(s.Events),
		boolToInt(s.Active),
		s.Secret,
		s.Description,
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	return err
}

func (r *SubscribersRepo) Update(ctx context.Context, s subscribers.Subscriber) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE webhooks SET url = ?, events = ?, active = ?, secret = ?, description = ?, updated_at = ?
		WHERE id = ?
	`,
		s.URL,
		joinEvents(s.Events),
		boolToInt(s.Active),
		s.Secret,
		s.Description,
		formatTime(s.UpdatedAt),
		s.ID,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *SubscribersRepo) GetByID(ctx context.Context, id string) (subscribers.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, url, events, active, secret, description, created_at, updated_at
		FROM webhooks WHERE id = ?
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// los timestamps son texto: se ordena en Go
	subscribers.SortByCreatedAt(out)
	return out, nil
}

func (r *SubscribersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
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
		s                subscribers.Subscriber
		evs              string
		active           int64
		created, updated string
	)
	if err := sc.Scan(&s.ID, &s.URL, &evs, &active, &s.Secret, &s.Description, &created, &updated); err != nil {
		return subscribers.Subscriber{}, err
	}

	var err error
	if s.CreatedAt, err = parseTime(created); err != nil {
		return subscribers.Subscriber{}, err
	}
	if s.UpdatedAt, err = parseTime(updated); err != nil {
		return subscribers.Subscriber{}, err
	}
	s.Events = splitEvents(evs)
	s.Active = active != 0
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
