package bounties

import "bounty-webhooks/internal/domain/events"

// transiciones que se detectan además de created, en orden de emisión
var transitions = []struct {
	status string
	event  events.EventType
}{
	{StatusClaimed, events.EventTypeClaimed},
	{StatusSubmitted, events.EventTypeSubmitted},
	{StatusCompleted, events.EventTypeCompleted},
}

// rank ordena los estados conocidos; los desconocidos valen 0 como open.
func rank(status string) int {
	switch status {
	case StatusClaimed:
		return 1
	case StatusSubmitted:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// Detect devuelve los eventos implicados por pasar de previous a current.
// previous == nil significa primera vez visto.
//
// Primera vez: siempre created, y luego cada estado avanzado se chequea de
// forma independiente contra current.Status (un bounty ya "completed" emite
// created + completed, sin claimed ni submitted).
// Visto antes: emite X sólo si previous.Status != X && current.Status == X,
// y X no queda por detrás de previous.Status (completed -> claimed no emite).
// Estados desconocidos en current no emiten nada.
//
// Es pura: el caller escribe el snapshot nuevo después de llamar a Detect.
func Detect(previous *Snapshot, current Record) []events.EventType {
	var out []events.EventType

	if previous == nil {
		out = append(out, events.EventTypeCreated)
		for _, tr := range transitions {
			if current.Status == tr.status {
				out = append(out, tr.event)
			}
		}
		return out
	}

	for _, tr := range transitions {
		if previous.Status != tr.status && current.Status == tr.status &&
			rank(previous.Status) < rank(tr.status) {
			out = append(out, tr.event)
		}
	}
	return out
}
