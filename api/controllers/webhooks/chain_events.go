package webhooks

import (
	"net/http"

	"github.com/swiftpaylabs/swiftpay-backend/api/responses"
	"github.com/swiftpaylabs/swiftpay-backend/api/validators"
	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

const maxWebhookBatch = 100

type chainEventsRequest struct {
	Events []ingest.RawEvent `json:"events" validate:"required,min=1,dive"`
}

type chainEventsResponse struct {
	Results []ingest.Result `json:"results"`
}

// ChainEvents ingests a batch of raw chain events delivered by the indexer.
// Ingestion is idempotent, so the indexer is free to retry the whole batch.
func ChainEvents(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chainEventsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(req.Events) > maxWebhookBatch {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "batch exceeds the maximum of 100 events"))
			return
		}

		results, err := svc.IngestBatch(r.Context(), req.Events)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, chainEventsResponse{Results: results})
	}
}
