package router

import (
	"encoding/json"
	"net/http"
	"time"

	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/events"
	"bounty-webhooks/internal/domain/subscribers"
	"bounty-webhooks/internal/middleware"
	"bounty-webhooks/internal/platform/logger"
	"bounty-webhooks/internal/poller"

	_ "bounty-webhooks/internal/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Poller es lo que la API usa del orquestador.
type Poller interface {
	Trigger() bool
	Stats() poller.Stats
	KnownBounties() int
}

type Options struct {
	Logger logger.Logger

	Subscribers *subscribers.Service
	Tester      subscribers.Tester // puede ser nil: /webhooks/{id}/test responde 501
	Deliveries  deliveries.Reader
	Poller      Poller

	// Si no está vacía, las rutas de administración exigen X-Api-Key.
	AdminAPIKey string
	// Solo informativo (/health).
	StorageDriver string
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler(opts))
	events.RegisterRoutes(r)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Group(func(ar chi.Router) {
		ar.Use(middleware.APIKey(opts.AdminAPIKey))

		subscribers.RegisterRoutes(ar, opts.Subscribers, opts.Tester)
		deliveries.RegisterRoutes(ar, opts.Deliveries)
		ar.Post("/poll", pollHandler(opts.Poller))
	})

	return r
}

type healthResponse struct {
	Status        string       `json:"status"`
	KnownBounties int          `json:"knownBounties"`
	Webhooks      int          `json:"webhooks"`
	Storage       string       `json:"storage,omitempty"`
	LastPollAt    *time.Time   `json:"lastPollAt,omitempty"`
	LastPollError string       `json:"lastPollError,omitempty"`
	Cycles        int64        `json:"cycles"`
	Poller        poller.Stats `json:"poller"`
}

// healthHandler godoc
// @Summary Estado del servicio y del poller
// @Tags system
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func healthHandler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := healthResponse{
			Status:  "ok",
			Storage: opts.StorageDriver,
		}

		if opts.Subscribers != nil {
			n, err := opts.Subscribers.Count(r.Context())
			if err != nil {
				out.Status = "degraded"
			}
			out.Webhooks = n
		}
		if opts.Poller != nil {
			st := opts.Poller.Stats()
			out.KnownBounties = opts.Poller.KnownBounties()
			out.LastPollAt = st.LastPollAt
			out.LastPollError = st.LastError
			out.Cycles = st.Cycles
			out.Poller = st
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// pollHandler godoc
// @Summary Forzar un ciclo de polling
// @Description Encola un ciclo inmediato. Si ya hay uno encolado, no se agrega otro.
// @Tags system
// @Produce json
// @Param X-Api-Key header string false "Requerido si ADMIN_API_KEY está configurada"
// @Success 202 {object} map[string]bool
// @Failure 401 {string} string "unauthorized"
// @Router /poll [post]
func pollHandler(p Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			http.Error(w, "poller not available", http.StatusServiceUnavailable)
			return
		}
		queued := p.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
