package memory

import (
	"context"
	"errors"
	"sync"

	"bounty-webhooks/internal/domain/subscribers"
)

type subscriberRepo struct {
	mu   sync.RWMutex
	byID map[string]subscribers.Subscriber
}

func NewSubscriberRepo() subscribers.Repository {
	return &subscriberRepo{
		byID: make(map[string]subscribers.Subscriber),
	}
}

func (r *subscriberRepo) Create(ctx context.Context, s subscribers.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		return errors.New("subscriber id required")
	}
	if _, exists := r.byID[s.ID]; exists {
		return errors.New("subscriber already exists")
	}

	r.byID[s.ID] = s.Clone()
	return nil
}

func (r *subscriberRepo) Update(ctx context.Context, s subscribers.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; !ok {
		return subscribers.ErrNotFound
	}
	r.byID[s.ID] = s.Clone()
	return nil
}

func (r *subscriberRepo) GetByID(ctx context.Context, id string) (subscribers.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return subscribers.Subscriber{}, subscribers.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *subscriberRepo) List(ctx context.Context) ([]subscribers.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]subscribers.Subscriber, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s.Clone())
	}
	subscribers.SortByCreatedAt(out)
	return out, nil
}

func (r *subscriberRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return subscribers.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
