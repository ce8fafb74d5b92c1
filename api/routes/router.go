package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swiftpaylabs/swiftpay-backend/api/controllers"
	webhookcontrollers "github.com/swiftpaylabs/swiftpay-backend/api/controllers/webhooks"
	"github.com/swiftpaylabs/swiftpay-backend/api/middleware"
	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/internal/participants"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/internal/stats"
	"github.com/swiftpaylabs/swiftpay-backend/internal/updates"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Groups       groups.Service
	Updates      updates.Service
	Payments     payments.Service
	Participants participants.Service
	Stats        stats.Service
	Ingest       ingest.Service
	Broker       *notify.Broker
	Readiness    map[string]controllers.ReadinessPinger
	Metrics      prometheus.Gatherer
}

// NewRouter assembles the chi router for the API service.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/groups", func(r chi.Router) {
			r.Get("/", controllers.ListGroups(deps.Groups, logg))
			r.Get("/{id}", controllers.GetGroup(deps.Groups, deps.Updates, logg))
			r.Get("/{id}/updates", controllers.GroupUpdateHistory(deps.Groups, deps.Updates, logg))
		})

		r.Route("/participants", func(r chi.Router) {
			r.Get("/{address}", controllers.GetParticipant(deps.Participants, logg))
			r.Get("/{address}/groups", controllers.ListParticipantGroups(deps.Groups, logg))
		})

		r.Get("/payments", controllers.ListPayments(deps.Payments, logg))
		r.Get("/stats/overview", controllers.StatsOverview(deps.Stats, logg))
		r.Get("/stream", controllers.Stream(deps.Broker, logg))

		r.Post("/webhooks/chain-events", webhookcontrollers.ChainEvents(deps.Ingest, logg))
	})

	return r
}
