package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swiftpaylabs/swiftpay-backend/api/responses"
	"github.com/swiftpaylabs/swiftpay-backend/api/validators"
	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/participants"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

// maxAddressLen bounds chain addresses well above the 66-char hex form.
const maxAddressLen = 128

// GetParticipant returns one participant's profile and running totals.
func GetParticipant(svc participants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := validators.SanitizeString(chi.URLParam(r, "address"), maxAddressLen)
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "participant address is required"))
			return
		}

		participant, err := svc.Get(r.Context(), address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, participant)
	}
}

// ListParticipantGroups returns every group an address created or belongs to.
func ListParticipantGroups(svc groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := validators.SanitizeString(chi.URLParam(r, "address"), maxAddressLen)
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "participant address is required"))
			return
		}

		items, err := svc.ListByParticipant(r.Context(), address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
