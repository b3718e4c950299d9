package subscribers

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("subscriber not found")

// Repository lo implementan memory, jsonfile, postgres y sqlite.
// List devuelve copias ordenadas por CreatedAt.
type Repository interface {
	Create(ctx context.Context, s Subscriber) error
	Update(ctx context.Context, s Subscriber) error
	GetByID(ctx context.Context, id string) (Subscriber, error)
	List(ctx context.Context) ([]Subscriber, error)
	Delete(ctx context.Context, id string) error
}
