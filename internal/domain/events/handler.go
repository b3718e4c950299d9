package events

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router) {
	r.Get("/events", listTypesHandler())
}

type eventTypeResponse struct {
	Type        EventType `json:"type"`
	Description string    `json:"description"`
}

var descriptions = map[EventType]string{
	EventTypeCreated:   "A bounty was seen for the first time",
	EventTypeClaimed:   "A bounty moved to status claimed",
	EventTypeSubmitted: "A bounty moved to status submitted",
	EventTypeCompleted: "A bounty moved to status completed",
}

// listTypesHandler godoc
// @Summary Listar tipos de evento
// @Description Devuelve los tipos de evento a los que un webhook puede suscribirse.
// @Tags events
// @Produce json
// @Success 200 {array} eventTypeResponse
// @Router /events [get]
func listTypesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		types := LifecycleTypes()
		out := make([]eventTypeResponse, 0, len(types))
		for _, t := range types {
			out = append(out, eventTypeResponse{Type: t, Description: descriptions[t]})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
