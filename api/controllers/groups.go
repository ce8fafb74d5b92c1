package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiftpaylabs/swiftpay-backend/api/responses"
	"github.com/swiftpaylabs/swiftpay-backend/api/validators"
	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/updates"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/pagination"
)

// ListGroups returns mirrored groups, newest first.
func ListGroups(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := groups.ListParams{}

		if paid := strings.TrimSpace(r.URL.Query().Get("isPaid")); paid != "" {
			value, err := strconv.ParseBool(paid)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid isPaid value"))
				return
			}
			params.IsPaid = &value
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetGroup returns one group with its roster. The {id} segment accepts the
// local uuid or the chain-assigned group id.
func GetGroup(svc groups.Service, updatesSvc updates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "id"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "group id is required"))
			return
		}

		group, err := lookupGroup(r, svc, raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		open, err := updatesSvc.Open(r.Context(), group.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"group":             group,
			"openUpdateRequest": open,
		})
	}
}

// GroupUpdateHistory lists every update request recorded for a group.
func GroupUpdateHistory(svc groups.Service, updatesSvc updates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "id"))
		group, err := lookupGroup(r, svc, raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := updatesSvc.History(r.Context(), group.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": history})
	}
}

func lookupGroup(r *http.Request, svc groups.Service, raw string) (*models.Group, error) {
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		return svc.Get(r.Context(), id)
	}
	return svc.GetByChainID(r.Context(), raw)
}
