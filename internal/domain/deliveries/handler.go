package deliveries

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Reader es lo que la API necesita del log.
type Reader interface {
	Recent(f Filter) []Entry
}

func RegisterRoutes(r chi.Router, log Reader) {
	r.Get("/deliveries", listDeliveriesHandler(log))
}

// listDeliveriesHandler godoc
// @Summary Listar entregas recientes
// @Description Devuelve las entregas más recientes primero. Cada entrada resume una secuencia de hasta 3 intentos.
// @Tags deliveries
// @Produce json
// @Param X-Api-Key header string false "Requerido si ADMIN_API_KEY está configurada"
// @Param limit query int false "Máximo de entradas (1-1000). Por defecto 50"
// @Param webhookId query string false "Filtrar por webhook"
// @Param status query string false "success | failed"
// @Success 200 {array} Entry
// @Failure 400 {string} string "parámetros inválidos"
// @Router /deliveries [get]
func listDeliveriesHandler(log Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		f := Filter{
			SubscriberID: strings.TrimSpace(q.Get("webhookId")),
		}

		if v := strings.TrimSpace(q.Get("limit")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > MaxEntries {
				http.Error(w, "limit must be between 1 and 1000", http.StatusBadRequest)
				return
			}
			f.Limit = n
		}

		switch st := Status(strings.ToLower(strings.TrimSpace(q.Get("status")))); st {
		case "":
		case StatusSuccess, StatusFailed:
			f.Status = st
		default:
			http.Error(w, "status must be success or failed", http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, log.Recent(f))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
