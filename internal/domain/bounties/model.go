package bounties

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	StatusOpen      = "open"
	StatusClaimed   = "claimed"
	StatusSubmitted = "submitted"
	StatusCompleted = "completed"
)

var ErrInvalidRecord = errors.New("invalid bounty record")

// Record es un bounty tal como lo devuelve el feed. Raw conserva el JSON original
// completo (campos desconocidos incluidos) para el campo data del evento.
type Record struct {
	ID          int64
	Status      string
	ClaimedBy   *string
	SubmittedAt *string
	CompletedAt *string

	Raw json.RawMessage
}

// Snapshot es el último estado observado de un bounty.
type Snapshot struct {
	ID          int64   `json:"id"`
	Status      string  `json:"status"`
	ClaimedBy   *string `json:"claimedBy,omitempty"`
	SubmittedAt *string `json:"submittedAt,omitempty"`
	CompletedAt *string `json:"completedAt,omitempty"`
}

func (r Record) Snapshot() Snapshot {
	return Snapshot{
		ID:          r.ID,
		Status:      r.Status,
		ClaimedBy:   r.ClaimedBy,
		SubmittedAt: r.SubmittedAt,
		CompletedAt: r.CompletedAt,
	}
}

type wireRecord struct {
	ID          *json.Number    `json:"id"`
	Status      json.RawMessage `json:"status"`
	ClaimedBy   json.RawMessage `json:"claimedBy"`
	SubmittedAt json.RawMessage `json:"submittedAt"`
	CompletedAt json.RawMessage `json:"completedAt"`
}

// ParseRecord decodifica un registro del feed. Requiere id entero.
// Un status ausente queda como ""; uno no-string, como su texto literal.
// En ambos casos es inerte para el detector.
func ParseRecord(raw json.RawMessage) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var w wireRecord
	if err := dec.Decode(&w); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if w.ID == nil {
		return Record{}, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	id, err := w.ID.Int64()
	if err != nil {
		return Record{}, fmt.Errorf("%w: id %q is not an integer", ErrInvalidRecord, w.ID.String())
	}

	status := ""
	if s := optionalString(w.Status); s != nil {
		status = *s
	}

	return Record{
		ID:          id,
		Status:      status,
		ClaimedBy:   optionalString(w.ClaimedBy),
		SubmittedAt: optionalString(w.SubmittedAt),
		CompletedAt: optionalString(w.CompletedAt),
		Raw:         append(json.RawMessage(nil), raw...),
	}, nil
}

// optionalString: null/ausente => nil; string => valor; otro JSON => su texto literal.
func optionalString(raw json.RawMessage) *string {
	t := strings.TrimSpace(string(raw))
	if t == "" || t == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	return &t
}
