package deliveries

import "sync"

const (
	defaultListLimit = 50
)

// Log es el registro en memoria de entregas. Append es seguro entre goroutines
// (el dispatch puede ser paralelo); el orden interno es de más viejo a más nuevo.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

func NewLog(max int) *Log {
	if max <= 0 {
		max = MaxEntries
	}
	return &Log{max: max}
}

func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Trim descarta las entradas más viejas hasta dejar a lo sumo max.
func (l *Log) Trim() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) <= l.max {
		return
	}
	kept := make([]Entry, l.max)
	copy(kept, l.entries[len(l.entries)-l.max:])
	l.entries = kept
}

// Entries devuelve una copia, de más viejo a más nuevo (formato persistido).
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Replace restaura el log desde almacenamiento; aplica el tope.
func (l *Log) Replace(entries []Entry) {
	l.mu.Lock()
	l.entries = append([]Entry(nil), entries...)
	l.mu.Unlock()
	l.Trim()
}

// Recent devuelve las entradas más nuevas primero, filtradas.
func (l *Log) Recent(f Filter) []Entry {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > l.max {
		limit = l.max
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, min(limit, len(l.entries)))
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := l.entries[i]
		if f.SubscriberID != "" && e.SubscriberID != f.SubscriberID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, e)
	}
	return out
}
