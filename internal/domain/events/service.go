package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Factory construye eventos con id y timestamp derivados del mismo reloj.
type Factory struct {
	now func() time.Time
}

func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

// NewFactoryWithClock permite fijar el reloj (tests, replays).
func NewFactoryWithClock(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

func (f *Factory) New(t EventType, bountyID int64, data json.RawMessage) Event {
	at := f.now().UTC().Truncate(time.Millisecond)

	// copia: el evento no comparte memoria con el registro leído
	var d json.RawMessage
	if len(data) > 0 {
		d = append(json.RawMessage(nil), data...)
	}

	return Event{
		ID:        EventID(bountyID, t, at),
		Type:      t,
		BountyID:  bountyID,
		Data:      d,
		Timestamp: at,
	}
}

// EventID arma evt_<bountyId>_<type>_<epochMillis>.
// Dos eventos del mismo bounty y tipo en el mismo milisegundo colisionan.
func EventID(bountyID int64, t EventType, at time.Time) string {
	return fmt.Sprintf("evt_%d_%s_%d", bountyID, t, at.UnixMilli())
}
