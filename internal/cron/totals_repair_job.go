package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/participants"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TotalsRepairJobParams configure the participant totals rebuild.
type TotalsRepairJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Groups       groups.Repository
	Payments     payments.Repository
	Participants participants.Repository
}

// NewTotalsRepairJob rebuilds every participant's running totals from the
// mirrored groups and payments. The incremental counters drift only if an
// operator mutates rows by hand, so this is a weekly-grade safety net.
func NewTotalsRepairJob(params TotalsRepairJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Groups == nil || params.Payments == nil || params.Participants == nil {
		return nil, fmt.Errorf("groups, payments and participants repositories required")
	}
	return &totalsRepairJob{
		logg:         params.Logger,
		db:           params.DB,
		groups:       params.Groups,
		payments:     params.Payments,
		participants: params.Participants,
	}, nil
}

type totalsRepairJob struct {
	logg         *logger.Logger
	db           txRunner
	groups       groups.Repository
	payments     payments.Repository
	participants participants.Repository
}

func (j *totalsRepairJob) Name() string { return "participant-totals-repair" }

func (j *totalsRepairJob) Run(ctx context.Context) error {
	var groupRows, paymentRows int
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		parts := j.participants.WithTx(tx)
		if err := parts.ResetTotals(ctx); err != nil {
			return fmt.Errorf("resetting totals: %w", err)
		}

		err := j.groups.WithTx(tx).ForEach(ctx, 200, func(group *models.Group) error {
			groupRows++
			if err := parts.IncrementGroupsCreated(ctx, group.CreatorAddress); err != nil {
				return err
			}
			for _, member := range group.Members {
				if err := parts.IncrementGroupsJoined(ctx, member.MemberAddress); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("replaying groups: %w", err)
		}

		err = j.payments.WithTx(tx).ForEachCompleted(ctx, 500, func(payment *models.Payment) error {
			paymentRows++
			if err := parts.AddAmountPaid(ctx, payment.FromAddress, payment.Amount); err != nil {
				return err
			}
			return parts.AddAmountReceived(ctx, payment.ToAddress, payment.Amount)
		})
		if err != nil {
			return fmt.Errorf("replaying payments: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("totals repair: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"groups_replayed":   groupRows,
		"payments_replayed": paymentRows,
	})
	j.logg.Info(logCtx, "participant totals rebuilt")
	return nil
}
