package controllers

import (
	"context"
	"net/http"

	"github.com/swiftpaylabs/swiftpay-backend/api/responses"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

const envHeader = "X-SwiftPay-Env"

// ReadinessPinger is any dependency that can answer a health ping.
type ReadinessPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every wired dependency answers a ping.
// Nil pingers are skipped so the same handler serves both the API and the
// workers, which carry different dependency sets.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]ReadinessPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
						WithDetails(map[string]string{"dependency": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
