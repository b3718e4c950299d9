package events

import "strings"

type EventType string

const (
	EventTypeCreated   EventType = "bounty.created"
	EventTypeClaimed   EventType = "bounty.claimed"
	EventTypeSubmitted EventType = "bounty.submitted"
	EventTypeCompleted EventType = "bounty.completed"

	// EventTypeTest solo lo emite POST /webhooks/{id}/test; no es suscribible.
	EventTypeTest EventType = "webhook.test"
)

const typePrefix = "bounty."

// LifecycleTypes devuelve los tipos suscribibles, en orden de ciclo de vida.
func LifecycleTypes() []EventType {
	return []EventType{
		EventTypeCreated,
		EventTypeClaimed,
		EventTypeSubmitted,
		EventTypeCompleted,
	}
}

func (t EventType) IsLifecycle() bool {
	switch t {
	case EventTypeCreated, EventTypeClaimed, EventTypeSubmitted, EventTypeCompleted:
		return true
	default:
		return false
	}
}

// ParseEventType acepta "bounty.claimed" o la forma corta "claimed".
func ParseEventType(s string) (EventType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if !strings.HasPrefix(s, typePrefix) {
		s = typePrefix + s
	}
	t := EventType(s)
	if !t.IsLifecycle() {
		return "", false
	}
	return t, true
}
