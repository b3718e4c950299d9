package events

import (
	"encoding/json"
	"time"
)

// Event es el payload que recibe cada suscriptor. Inmutable una vez creado.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	BountyID  int64           `json:"bountyId"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Payload serializa el evento. El resultado es lo que se firma y se envía.
func (e Event) Payload() ([]byte, error) {
	if len(e.Data) == 0 {
		e.Data = json.RawMessage("null")
	}
	return json.Marshal(e)
}
