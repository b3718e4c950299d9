package memory

import (
	"context"
	"sync"

	"bounty-webhooks/internal/domain/bounties"
	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/state"
)

// StateStore guarda el último estado en memoria (STORAGE_DRIVER=memory y tests).
type StateStore struct {
	mu    sync.RWMutex
	st    state.State
	saves int
}

func NewStateStore() *StateStore {
	return &StateStore{st: state.Empty()}
}

func (s *StateStore) Load(ctx context.Context) (state.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.st), nil
}

func (s *StateStore) Save(ctx context.Context, st state.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = clone(st)
	s.saves++
	return nil
}

// Saves cuenta los Save exitosos.
func (s *StateStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func clone(st state.State) state.State {
	out := state.State{
		KnownBounties: make(map[int64]bounties.Snapshot, len(st.KnownBounties)),
		DeliveryLog:   append([]deliveries.Entry{}, st.DeliveryLog...),
	}
	for id, snap := range st.KnownBounties {
		out.KnownBounties[id] = snap
	}
	return out
}
