package ingest

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
)

// Repository persists the chain event idempotency records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Insert claims the dedup key. Returns (nil, true, nil) when another
	// row already holds it.
	Insert(ctx context.Context, event *models.ChainEvent) (*models.ChainEvent, bool, error)
	GetByDedupKey(ctx context.Context, contractAddress, transactionHash string, logIndex int) (*models.ChainEvent, error)
	MarkApplied(ctx context.Context, event *models.ChainEvent, at time.Time) error
	ListStuckReceived(ctx context.Context, olderThan time.Time, limit int) ([]models.ChainEvent, error)
	ListAppliedInOrder(ctx context.Context, batchSize int, fn func(event *models.ChainEvent) error) error
	Delete(ctx context.Context, event *models.ChainEvent) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a chain events repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{db: conn}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Insert(ctx context.Context, event *models.ChainEvent) (*models.ChainEvent, bool, error) {
	err := r.db.WithContext(ctx).Create(event).Error
	if err == nil {
		return event, false, nil
	}
	if db.IsUniqueViolation(err, "") {
		existing, getErr := r.GetByDedupKey(ctx, event.ContractAddress, event.TransactionHash, event.LogIndex)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, true, nil
	}
	return nil, false, err
}

func (r *repositoryImpl) GetByDedupKey(ctx context.Context, contractAddress, transactionHash string, logIndex int) (*models.ChainEvent, error) {
	var event models.ChainEvent
	err := r.db.WithContext(ctx).
		Where("contract_address = ? AND transaction_hash = ? AND log_index = ?",
			contractAddress, transactionHash, logIndex).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repositoryImpl) MarkApplied(ctx context.Context, event *models.ChainEvent, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.ChainEvent{}).
		Where("id = ?", event.ID).
		UpdateColumns(map[string]any{
			"status":     enums.ChainEventStatusApplied,
			"applied_at": at,
		}).Error
	if err != nil {
		return err
	}
	event.Status = enums.ChainEventStatusApplied
	event.AppliedAt = &at
	return nil
}

// ListStuckReceived returns events claimed but never applied, oldest first.
// These are handler failures and orphans awaiting redelivery.
func (r *repositoryImpl) ListStuckReceived(ctx context.Context, olderThan time.Time, limit int) ([]models.ChainEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.ChainEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.ChainEventStatusReceived, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListAppliedInOrder streams applied events by block then log index, the
// replay order used for totals repair.
func (r *repositoryImpl) ListAppliedInOrder(ctx context.Context, batchSize int, fn func(event *models.ChainEvent) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var rows []models.ChainEvent
	result := r.db.WithContext(ctx).
		Where("status = ?", enums.ChainEventStatusApplied).
		Order("block_number ASC, log_index ASC").
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

// Delete removes the claim so the event can be re-ingested from scratch.
// Used when the claiming transaction itself must roll back.
func (r *repositoryImpl) Delete(ctx context.Context, event *models.ChainEvent) error {
	return r.db.WithContext(ctx).Delete(&models.ChainEvent{}, "id = ?", event.ID).Error
}
