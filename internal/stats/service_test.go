package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

type fakeCounters struct {
	groups       int64
	paid         int64
	payments     int64
	volume       types.Amount
	participants int64
	dlq          int64
	err          error
}

func (f *fakeCounters) CountAll(context.Context) (int64, error)  { return f.groups, f.err }
func (f *fakeCounters) CountPaid(context.Context) (int64, error) { return f.paid, f.err }
func (f *fakeCounters) Count(context.Context) (int64, error)     { return f.payments, f.err }
func (f *fakeCounters) SumCompleted(context.Context) (types.Amount, error) {
	return f.volume, f.err
}

type fakeParticipantCounter struct {
	count int64
}

func (f *fakeParticipantCounter) Count(context.Context) (int64, error) { return f.count, nil }

type fakeDLQCounter struct {
	count int64
}

func (f *fakeDLQCounter) Count(context.Context) (int64, error) { return f.count, nil }

func TestOverviewAggregatesCounters(t *testing.T) {
	counters := &fakeCounters{
		groups:   10,
		paid:     4,
		payments: 25,
		volume:   types.MustAmount("50000"),
	}
	svc, err := NewService(counters, counters, &fakeParticipantCounter{count: 18}, &fakeDLQCounter{count: 2})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	overview, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if overview.TotalGroups != 10 || overview.PaidGroups != 4 {
		t.Fatalf("unexpected group counts: %+v", overview)
	}
	if overview.TotalPayments != 25 || overview.TotalVolume.String() != "50000" {
		t.Fatalf("unexpected payment stats: %+v", overview)
	}
	if overview.TotalParticipants != 18 || overview.DeadLetteredEvents != 2 {
		t.Fatalf("unexpected participant/dlq stats: %+v", overview)
	}
}

func TestOverviewPropagatesErrors(t *testing.T) {
	counters := &fakeCounters{err: errors.New("boom")}
	svc, err := NewService(counters, counters, &fakeParticipantCounter{}, &fakeDLQCounter{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := svc.Overview(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error")
	}
}
