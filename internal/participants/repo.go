package participants

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// Repository exposes persistence helpers for the per-address aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByAddress(ctx context.Context, address string) (*models.Participant, error)
	EnsureByAddress(ctx context.Context, address string) (*models.Participant, error)
	IncrementGroupsCreated(ctx context.Context, address string) error
	IncrementGroupsJoined(ctx context.Context, address string) error
	AddAmountPaid(ctx context.Context, address string, amount types.Amount) error
	AddAmountReceived(ctx context.Context, address string, amount types.Amount) error
	ResetTotals(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a participants repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) GetByAddress(ctx context.Context, address string) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.WithContext(ctx).First(&participant, "address = ?", address).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// EnsureByAddress creates the row if missing. Concurrent creators race on the
// address unique index; the loser re-reads the winner's row.
func (r *repositoryImpl) EnsureByAddress(ctx context.Context, address string) (*models.Participant, error) {
	participant, err := r.GetByAddress(ctx, address)
	if err == nil {
		return participant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.Participant{
		Address:             address,
		TotalAmountPaid:     types.ZeroAmount(),
		TotalAmountReceived: types.ZeroAmount(),
	}
	createErr := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "address"}}, DoNothing: true}).
		Create(fresh).Error
	if createErr != nil {
		return nil, createErr
	}
	return r.GetByAddress(ctx, address)
}

func (r *repositoryImpl) IncrementGroupsCreated(ctx context.Context, address string) error {
	if _, err := r.EnsureByAddress(ctx, address); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("address = ?", address).
		UpdateColumn("total_groups_created", gorm.Expr("total_groups_created + 1")).Error
}

func (r *repositoryImpl) IncrementGroupsJoined(ctx context.Context, address string) error {
	if _, err := r.EnsureByAddress(ctx, address); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("address = ?", address).
		UpdateColumn("total_groups_joined", gorm.Expr("total_groups_joined + 1")).Error
}

func (r *repositoryImpl) AddAmountPaid(ctx context.Context, address string, amount types.Amount) error {
	if _, err := r.EnsureByAddress(ctx, address); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("address = ?", address).
		UpdateColumn("total_amount_paid", gorm.Expr("total_amount_paid + ?", amount)).Error
}

func (r *repositoryImpl) AddAmountReceived(ctx context.Context, address string, amount types.Amount) error {
	if _, err := r.EnsureByAddress(ctx, address); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("address = ?", address).
		UpdateColumn("total_amount_received", gorm.Expr("total_amount_received + ?", amount)).Error
}

// ResetTotals zeroes every running sum ahead of a full replay repair.
func (r *repositoryImpl) ResetTotals(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("1 = 1").
		UpdateColumns(map[string]any{
			"total_groups_created":  0,
			"total_groups_joined":   0,
			"total_amount_paid":     "0",
			"total_amount_received": "0",
		}).Error
}

func (r *repositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Participant{}).Count(&count).Error
	return count, err
}
