package jsonfile

import (
	"context"
	"path/filepath"
	"sync"

	"bounty-webhooks/internal/domain/bounties"
	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/state"
)

// StateStore persiste {knownBounties, deliveryLog} en DATA_DIR/state.json.
type StateStore struct {
	mu   sync.Mutex
	path string
}

func NewStateStore(dataDir string) *StateStore {
	return &StateStore{path: filepath.Join(dataDir, StateFile)}
}

func (s *StateStore) Path() string { return s.path }

func (s *StateStore) Load(ctx context.Context) (state.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := state.Empty()
	if _, err := readJSON(s.path, &st); err != nil {
		return state.State{}, err
	}
	if st.KnownBounties == nil {
		st.KnownBounties = map[int64]bounties.Snapshot{}
	}
	if st.DeliveryLog == nil {
		st.DeliveryLog = []deliveries.Entry{}
	}
	return st, nil
}

func (s *StateStore) Save(ctx context.Context, st state.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.KnownBounties == nil {
		st.KnownBounties = map[int64]bounties.Snapshot{}
	}
	if st.DeliveryLog == nil {
		st.DeliveryLog = []deliveries.Entry{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path, st)
}
