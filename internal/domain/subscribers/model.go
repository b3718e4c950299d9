package subscribers

import (
	"sort"
	"time"

	"bounty-webhooks/internal/domain/events"
)

// Subscriber es un endpoint registrado. Secret vacío => se firma con la clave global.
type Subscriber struct {
	ID          string             `json:"id"`
	URL         string             `json:"url"`
	Events      []events.EventType `json:"events"`
	Active      bool               `json:"active"`
	Secret      string             `json:"secret,omitempty"`
	Description string             `json:"description,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Wants indica si el suscriptor está activo y suscrito a t.
func (s Subscriber) Wants(t events.EventType) bool {
	if !s.Active {
		return false
	}
	for _, e := range s.Events {
		if e == t {
			return true
		}
	}
	return false
}

// Clone copia el slice de eventos para que el caller no comparta memoria con el repo.
func (s Subscriber) Clone() Subscriber {
	s.Events = append([]events.EventType(nil), s.Events...)
	return s
}

// SortByCreatedAt ordena por CreatedAt y, a igual fecha, por ID.
func SortByCreatedAt(list []Subscriber) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
