package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/pagination"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// Repository exposes persistence helpers for the payment ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	Exists(ctx context.Context, groupID uuid.UUID, transactionHash string, logIndex int) (bool, error)
	List(ctx context.Context, params listPaymentsParams) ([]models.Payment, *pagination.Cursor, error)
	ForEachCompleted(ctx context.Context, batchSize int, fn func(payment *models.Payment) error) error
	Count(ctx context.Context) (int64, error)
	SumCompleted(ctx context.Context) (types.Amount, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listPaymentsParams struct {
	GroupID uuid.UUID
	Address string
	Status  enums.PaymentStatus
	Limit   int
	Cursor  *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// Exists is the ledger dedup check: same group and transaction hash, or the
// same exact chain log, means the payment was already recorded.
func (r *repositoryImpl) Exists(ctx context.Context, groupID uuid.UUID, transactionHash string, logIndex int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("(group_id = ? AND transaction_hash = ?) OR (transaction_hash = ? AND log_index = ?)",
			groupID, transactionHash, transactionHash, logIndex).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listPaymentsParams) ([]models.Payment, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if params.GroupID != uuid.Nil {
		query = query.Where("group_id = ?", params.GroupID)
	}
	if params.Address != "" {
		query = query.Where("from_address = ? OR to_address = ?", params.Address, params.Address)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Payment
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

// ForEachCompleted streams completed payments in insertion order for replay.
func (r *repositoryImpl) ForEachCompleted(ctx context.Context, batchSize int, fn func(payment *models.Payment) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var rows []models.Payment
	result := r.db.WithContext(ctx).
		Where("status = ?", enums.PaymentStatusCompleted).
		Order("created_at ASC, id ASC").
		FindInBatches(&rows, batchSize, func(_ *gorm.DB, _ int) error {
			for i := range rows {
				if err := fn(&rows[i]); err != nil {
					return err
				}
			}
			return nil
		})
	return result.Error
}

func (r *repositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Count(&count).Error
	return count, err
}

// SumCompleted totals all completed payment amounts in Go to keep the
// arbitrary-precision guarantee independent of driver arithmetic.
func (r *repositoryImpl) SumCompleted(ctx context.Context) (types.Amount, error) {
	sum := types.ZeroAmount()
	err := r.ForEachCompleted(ctx, 500, func(payment *models.Payment) error {
		sum = sum.Add(payment.Amount)
		return nil
	})
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ZeroAmount(), err
	}
	return sum, nil
}
