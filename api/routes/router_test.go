package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/internal/stats"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

type routerGroupsService struct{}

func (routerGroupsService) Get(context.Context, uuid.UUID) (*models.Group, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
}

func (routerGroupsService) GetByChainID(context.Context, string) (*models.Group, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
}

func (routerGroupsService) List(context.Context, groups.ListParams) (*groups.ListResult, error) {
	return &groups.ListResult{}, nil
}

func (routerGroupsService) ListByParticipant(context.Context, string) ([]models.Group, error) {
	return nil, nil
}

type routerUpdatesService struct{}

func (routerUpdatesService) Open(context.Context, uuid.UUID) (*models.UpdateRequest, error) {
	return nil, nil
}

func (routerUpdatesService) History(context.Context, uuid.UUID) ([]models.UpdateRequest, error) {
	return nil, nil
}

type routerPaymentsService struct{}

func (routerPaymentsService) List(context.Context, payments.ListParams) (*payments.ListResult, error) {
	return &payments.ListResult{}, nil
}

type routerParticipantsService struct{}

func (routerParticipantsService) Get(context.Context, string) (*models.Participant, error) {
	return &models.Participant{Address: "0xabc"}, nil
}

type routerStatsService struct{}

func (routerStatsService) Overview(context.Context) (*stats.Overview, error) {
	return &stats.Overview{}, nil
}

type routerIngestService struct{}

func (routerIngestService) IngestBatch(context.Context, []ingest.RawEvent) ([]ingest.Result, error) {
	return nil, nil
}

func (routerIngestService) Replay(context.Context, *models.ChainEvent) ingest.Result {
	return ingest.Result{}
}

func (routerIngestService) SweepOrphans(context.Context) int { return 0 }

func (routerIngestService) OrphanCount() int { return 0 }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(Deps{
		Config:       &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:       logg,
		Groups:       routerGroupsService{},
		Updates:      routerUpdatesService{},
		Payments:     routerPaymentsService{},
		Participants: routerParticipantsService{},
		Stats:        routerStatsService{},
		Ingest:       routerIngestService{},
		Broker:       notify.NewBroker(logg),
		Metrics:      prometheus.NewRegistry(),
	})
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/groups", http.StatusOK},
		{http.MethodGet, "/api/v1/groups/" + uuid.NewString(), http.StatusNotFound},
		{http.MethodGet, "/api/v1/participants/0xabc", http.StatusOK},
		{http.MethodGet, "/api/v1/participants/0xabc/groups", http.StatusOK},
		{http.MethodGet, "/api/v1/payments", http.StatusOK},
		{http.MethodGet, "/api/v1/stats/overview", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/groups", http.StatusMethodNotAllowed},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.status, resp.Code, resp.Body.String())
		}
	}
}
