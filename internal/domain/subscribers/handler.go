package subscribers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/events"

	"github.com/go-chi/chi/v5"
)

// Tester envía un evento webhook.test a un suscriptor. Lo implementa el motor
// de entregas; se declara acá para no importar delivery (ciclo).
type Tester interface {
	SendTest(ctx context.Context, sub Subscriber) deliveries.Entry
}

func RegisterRoutes(r chi.Router, svc *Service, tester Tester) {
	r.Route("/webhooks", func(wr chi.Router) {
		wr.Post("/", createSubscriberHandler(svc))
		wr.Get("/", listSubscribersHandler(svc))

		wr.Get("/{webhookID}", getSubscriberHandler(svc))
		wr.Patch("/{webhookID}", updateSubscriberHandler(svc))
		wr.Delete("/{webhookID}", deleteSubscriberHandler(svc))

		wr.Post("/{webhookID}/test", testSubscriberHandler(svc, tester))
	})
}

type createSubscriberRequest struct {
	URL         string   `json:"url"`
	Events      []string `json:"events" enums:"bounty.created,bounty.claimed,bounty.submitted,bounty.completed"`
	Secret      string   `json:"secret"`      // opcional
	Description string   `json:"description"` // opcional
	Active      *bool    `json:"active"`      // opcional, default true
}

type updateSubscriberRequest struct {
	URL         *string   `json:"url"`
	Events      *[]string `json:"events"`
	Active      *bool     `json:"active"`
	Description *string   `json:"description"`
}

// subscriberResponse nunca expone el secret.
type subscriberResponse struct {
	ID          string             `json:"id"`
	URL         string             `json:"url"`
	Events      []events.EventType `json:"events"`
	Active      bool               `json:"active"`
	HasSecret   bool               `json:"hasSecret"`
	Description string             `json:"description,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// createSubscriberHandler godoc
// @Summary Registrar webhook
// @Description Registra un endpoint para recibir eventos de bounties. Si no se envía secret, las firmas usan la clave global del servicio.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Api-Key header string false "Requerido si ADMIN_API_KEY está configurada"
// @Param payload body createSubscriberRequest true "url http(s) absoluta y al menos un tipo de evento"
// @Success 201 {object} subscriberResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Router /webhooks [post]
func createSubscriberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSubscriberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		sub, err := svc.Create(r.Context(), CreateInput{
			URL:         req.URL,
			Events:      req.Events,
			Secret:      req.Secret,
			Description: req.Description,
			Active:      req.Active,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSubscriberResponse(sub))
	}
}

// listSubscribersHandler godoc
// @Summary Listar webhooks
// @Tags webhooks
// @Produce json
// @Param X-Api-Key header string false "Requerido si ADMIN_API_KEY está configurada"
// @Success 200 {array} subscriberResponse
// @Failure 500 {string} string "internal error"
// @Router /webhooks [get]
func listSubscribersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]subscriberResponse, 0, len(subs))
		for _, s := range subs {
			out = append(out, toSubscriberResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getSubscriberHandler godoc
// @Summary Obtener webhook
// @Tags webhooks
// @Produce json
// @Param X-Api-Key header string false "Requerido si ADMIN_API_KEY está configurada"
// @Param webhookID path string true "ID del webhook"
// @Success 200 {object} subscriberResponse
// @Failure 404 {string} string "webhook not found"
// @Router /webhooks/{webhookID} [get]
func getSubscriberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := svc.GetByID(r.Context(), chi.URLParam(r, "webhookID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSubscriberResponse(sub))
	}
}

// updateSubscriberHandler godoc
// @Summary Actualizar webhook
// @Description Actualización parcial. "secret": null o "" vuelve a la clave global.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Api-Key header string false "Requerido si ADMIN_API_KEY está configurada"
// @Param webhookID path string true "ID del webhook"
// @Param payload body updateSubscriberRequest true "campos a modificar"
// @Success 200 {object} subscriberResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 404 {string} string "webhook not found"
// @Router /webhooks/{webhookID} [patch]
func updateSubscriberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		// map primero para detectar presencia de "secret" (null = limpiar)
		var raw map[string]json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		secret := PatchSecret{}
		if v, exists := raw["secret"]; exists {
			secret.Present = true
			if string(v) != "null" {
				if err := json.Unmarshal(v, &secret.Value); err != nil {
					http.Error(w, "secret must be a string or null", http.StatusBadRequest)
					return
				}
			}
			delete(raw, "secret")
		}

		var req updateSubscriberRequest
		{
			b, _ := json.Marshal(raw)
			fd := json.NewDecoder(bytes.NewReader(b))
			fd.DisallowUnknownFields()
			if err := fd.Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		sub, err := svc.Update(r.Context(), chi.URLParam(r, "webhookID"), UpdateInput{
			URL:         req.URL,
			Events:      req.Events,
			Active:      req.Active,
			Description: req.Description,
			Secret:      secret,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSubscriberResponse(sub))
	}
}

// deleteSubscriberHandler godoc
// @Summary Eliminar webhook
// @Tags webhooks
// @Param X-Api-Key header string false "Requerido si ADMIN_API_KEY está configurada"
// @Param webhookID path string true "ID del webhook"
// @Success 204
// @Failure 404 {string} string "webhook not found"
// @Router /webhooks/{webhookID} [delete]
func deleteSubscriberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "webhookID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// testSubscriberHandler godoc
// @Summary Enviar evento de prueba
// @Description Envía un evento firmado webhook.test (un solo intento) y devuelve el resultado, que también queda en el log de entregas.
// @Tags webhooks
// @Produce json
// @Param X-Api-Key header string false "Requerido si ADMIN_API_KEY está configurada"
// @Param webhookID path string true "ID del webhook"
// @Success 200 {object} deliveries.Entry
// @Failure 404 {string} string "webhook not found"
// @Router /webhooks/{webhookID}/test [post]
func testSubscriberHandler(svc *Service, tester Tester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tester == nil {
			http.Error(w, "test delivery not available", http.StatusNotImplemented)
			return
		}

		sub, err := svc.GetByID(r.Context(), chi.URLParam(r, "webhookID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, tester.SendTest(r.Context(), sub))
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "webhook not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toSubscriberResponse(s Subscriber) subscriberResponse {
	evs := s.Events
	if evs == nil {
		evs = []events.EventType{}
	}
	return subscriberResponse{
		ID:          s.ID,
		URL:         s.URL,
		Events:      evs,
		Active:      s.Active,
		HasSecret:   s.Secret != "",
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
