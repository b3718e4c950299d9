package bounties

import "sync"

// Store es el mapa id -> último snapshot. Crece sin límite: los bounties no
// desaparecen del feed y no hay expiración.
type Store struct {
	mu   sync.RWMutex
	byID map[int64]Snapshot
}

func NewStore() *Store {
	return &Store{byID: make(map[int64]Snapshot)}
}

// Get devuelve una copia del snapshot, si existe.
func (s *Store) Get(id int64) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &snap, true
}

// Put sobrescribe el snapshot de snap.ID.
func (s *Store) Put(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[snap.ID] = snap
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// All devuelve una copia del mapa completo (para persistir).
func (s *Store) All() map[int64]Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]Snapshot, len(s.byID))
	for id, snap := range s.byID {
		out[id] = snap
	}
	return out
}

// Replace reemplaza todo el contenido (al restaurar estado en el arranque).
func (s *Store) Replace(m map[int64]Snapshot) {
	next := make(map[int64]Snapshot, len(m))
	for id, snap := range m {
		// la clave manda: un snapshot mal guardado no cambia de id
		snap.ID = id
		next[id] = snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = next
}
