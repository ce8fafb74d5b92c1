package stats

import (
	"context"

	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

type groupCounter interface {
	CountAll(ctx context.Context) (int64, error)
	CountPaid(ctx context.Context) (int64, error)
}

type paymentCounter interface {
	Count(ctx context.Context) (int64, error)
	SumCompleted(ctx context.Context) (types.Amount, error)
}

type participantCounter interface {
	Count(ctx context.Context) (int64, error)
}

type dlqCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Overview is the aggregate snapshot served at /stats/overview.
type Overview struct {
	TotalGroups        int64        `json:"totalGroups"`
	PaidGroups         int64        `json:"paidGroups"`
	TotalPayments      int64        `json:"totalPayments"`
	TotalVolume        types.Amount `json:"totalVolume"`
	TotalParticipants  int64        `json:"totalParticipants"`
	DeadLetteredEvents int64        `json:"deadLetteredEvents"`
}

// Service aggregates mirror-wide counters.
type Service interface {
	Overview(ctx context.Context) (*Overview, error)
}

type serviceImpl struct {
	groups       groupCounter
	payments     paymentCounter
	participants participantCounter
	dlq          dlqCounter
}

// NewService wires the stats reader.
func NewService(groups groupCounter, payments paymentCounter, participants participantCounter, dlq dlqCounter) (Service, error) {
	if groups == nil || payments == nil || participants == nil || dlq == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stats service requires all repositories")
	}
	return &serviceImpl{
		groups:       groups,
		payments:     payments,
		participants: participants,
		dlq:          dlq,
	}, nil
}

func (s *serviceImpl) Overview(ctx context.Context) (*Overview, error) {
	totalGroups, err := s.groups.CountAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting groups")
	}
	paidGroups, err := s.groups.CountPaid(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting paid groups")
	}
	totalPayments, err := s.payments.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting payments")
	}
	volume, err := s.payments.SumCompleted(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing completed payments")
	}
	totalParticipants, err := s.participants.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting participants")
	}
	deadLettered, err := s.dlq.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting dead-lettered events")
	}

	return &Overview{
		TotalGroups:        totalGroups,
		PaidGroups:         paidGroups,
		TotalPayments:      totalPayments,
		TotalVolume:        volume,
		TotalParticipants:  totalParticipants,
		DeadLetteredEvents: deadLettered,
	}, nil
}
