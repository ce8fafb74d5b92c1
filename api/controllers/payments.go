package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/swiftpaylabs/swiftpay-backend/api/responses"
	"github.com/swiftpaylabs/swiftpay-backend/api/validators"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/pagination"
)

// ListPayments returns mirrored payments filtered by group, address or status.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := payments.ListParams{
			Address: strings.TrimSpace(r.URL.Query().Get("address")),
			Status:  strings.TrimSpace(r.URL.Query().Get("status")),
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		if groupID := strings.TrimSpace(r.URL.Query().Get("groupId")); groupID != "" {
			id, err := uuid.Parse(groupID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid groupId"))
				return
			}
			params.GroupID = id
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
