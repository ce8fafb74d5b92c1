package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
)

type testPaymentsService struct {
	listFn func(ctx context.Context, params payments.ListParams) (*payments.ListResult, error)
}

func (s *testPaymentsService) List(ctx context.Context, params payments.ListParams) (*payments.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &payments.ListResult{}, nil
}

func TestListPaymentsPassesFilters(t *testing.T) {
	groupID := uuid.New()
	var captured payments.ListParams
	svc := &testPaymentsService{
		listFn: func(_ context.Context, params payments.ListParams) (*payments.ListResult, error) {
			captured = params
			return &payments.ListResult{Items: []models.Payment{{GroupID: groupID}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/payments?groupId="+groupID.String()+"&address=0xabc&status=completed&limit=10", nil)
	resp := httptest.NewRecorder()
	ListPayments(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if captured.GroupID != groupID || captured.Address != "0xabc" {
		t.Fatalf("unexpected params %+v", captured)
	}
	if captured.Status != "completed" || captured.Limit != 10 {
		t.Fatalf("unexpected params %+v", captured)
	}
}

func TestListPaymentsRejectsBadGroupID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?groupId=not-a-uuid", nil)
	resp := httptest.NewRecorder()
	ListPayments(&testPaymentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
