package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"bounty-webhooks/internal/domain/subscribers"
)

// SubscriberRepo mantiene los suscriptores en memoria y reescribe
// DATA_DIR/webhooks.json entero en cada cambio.
type SubscriberRepo struct {
	mu   sync.RWMutex
	path string
	byID map[string]subscribers.Subscriber
}

// OpenSubscriberRepo carga webhooks.json si existe.
func OpenSubscriberRepo(dataDir string) (*SubscriberRepo, error) {
	r := &SubscriberRepo{
		path: filepath.Join(dataDir, SubscribersFile),
		byID: map[string]subscribers.Subscriber{},
	}

	var list []subscribers.Subscriber
	if _, err := readJSON(r.path, &list); err != nil {
		return nil, err
	}
	for _, s := range list {
		if s.ID == "" {
			continue
		}
		r.byID[s.ID] = s.Clone()
	}
	return r, nil
}

func (r *SubscriberRepo) Create(ctx context.Context, s subscribers.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		return errors.New("subscriber id required")
	}
	if _, exists := r.byID[s.ID]; exists {
		return errors.New("subscriber already exists")
	}

	r.byID[s.ID] = s.Clone()
	if err := r.flushLocked(); err != nil {
		delete(r.byID, s.ID)
		return err
	}
	return nil
}

func (r *SubscriberRepo) Update(ctx context.Context, s subscribers.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byID[s.ID]
	if !ok {
		return subscribers.ErrNotFound
	}

	r.byID[s.ID] = s.Clone()
	if err := r.flushLocked(); err != nil {
		r.byID[s.ID] = prev
		return err
	}
	return nil
}

func (r *SubscriberRepo) GetByID(ctx context.Context, id string) (subscribers.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return subscribers.Subscriber{}, subscribers.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *SubscriberRepo) List(ctx context.Context) ([]subscribers.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(), nil
}

func (r *SubscriberRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byID[id]
	if !ok {
		return subscribers.ErrNotFound
	}

	delete(r.byID, id)
	if err := r.flushLocked(); err != nil {
		r.byID[id] = prev
		return err
	}
	return nil
}

func (r *SubscriberRepo) sortedLocked() []subscribers.Subscriber {
	out := make([]subscribers.Subscriber, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s.Clone())
	}
	subscribers.SortByCreatedAt(out)
	return out
}

// un fallo de escritura deja el mapa como estaba antes del cambio
func (r *SubscriberRepo) flushLocked() error {
	return writeJSON(r.path, r.sortedLocked())
}
