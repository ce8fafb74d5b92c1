package controllers

import (
	"net/http"

	"github.com/swiftpaylabs/swiftpay-backend/api/responses"
	"github.com/swiftpaylabs/swiftpay-backend/internal/stats"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

// StatsOverview returns mirror-wide aggregate counters.
func StatsOverview(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overview, err := svc.Overview(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}
