package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/pagination"
)

type fakePaymentsRepo struct {
	Repository
	listFn func(ctx context.Context, params listPaymentsParams) ([]models.Payment, *pagination.Cursor, error)
}

func (f *fakePaymentsRepo) List(ctx context.Context, params listPaymentsParams) ([]models.Payment, *pagination.Cursor, error) {
	return f.listFn(ctx, params)
}

func TestListPassesFiltersToRepository(t *testing.T) {
	groupID := uuid.New()
	var got listPaymentsParams
	svc, err := NewService(&fakePaymentsRepo{
		listFn: func(_ context.Context, params listPaymentsParams) ([]models.Payment, *pagination.Cursor, error) {
			got = params
			return nil, nil, nil
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.List(context.Background(), ListParams{
		GroupID: groupID,
		Address: "0xaaa",
		Status:  "completed",
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.GroupID != groupID || got.Address != "0xaaa" || got.Limit != 10 {
		t.Fatalf("filters not passed through: %+v", got)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc, err := NewService(&fakePaymentsRepo{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.List(context.Background(), ListParams{Status: "refunded"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListRejectsMalformedCursor(t *testing.T) {
	svc, err := NewService(&fakePaymentsRepo{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.List(context.Background(), ListParams{Cursor: "not-a-cursor"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListEncodesNextCursor(t *testing.T) {
	next := &pagination.Cursor{ID: uuid.New()}
	svc, err := NewService(&fakePaymentsRepo{
		listFn: func(context.Context, listPaymentsParams) ([]models.Payment, *pagination.Cursor, error) {
			return []models.Payment{{ID: uuid.New()}}, next, nil
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cursor == "" {
		t.Fatal("expected encoded cursor for next page")
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected one payment, got %d", len(result.Items))
	}
}

func TestListWrapsRepositoryFailure(t *testing.T) {
	svc, err := NewService(&fakePaymentsRepo{
		listFn: func(context.Context, listPaymentsParams) ([]models.Payment, *pagination.Cursor, error) {
			return nil, nil, errors.New("connection reset")
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.List(context.Background(), ListParams{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
