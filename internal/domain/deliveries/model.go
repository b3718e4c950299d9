package deliveries

import (
	"time"

	"bounty-webhooks/internal/domain/events"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// MaxEntries es el tope del log tras cada flush.
const MaxEntries = 1000

// Entry registra el resultado final de una secuencia de intentos
// (evento, suscriptor). Nunca se modifica después de agregarse.
type Entry struct {
	EventID      string           `json:"eventId"`
	EventType    events.EventType `json:"eventType,omitempty"`
	SubscriberID string           `json:"webhookId"`
	URL          string           `json:"url,omitempty"`
	Status       Status           `json:"status"`
	Attempts     int              `json:"attempts"`
	StatusCode   *int             `json:"statusCode,omitempty"`
	Error        string           `json:"error,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

type Filter struct {
	SubscriberID string
	Status       Status
	Limit        int
}
