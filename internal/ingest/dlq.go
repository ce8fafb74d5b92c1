package ingest

import (
	"context"

	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
)

// DLQRepository records events given up on, for manual reconciliation.
type DLQRepository interface {
	WithTx(tx *gorm.DB) DLQRepository
	Insert(ctx context.Context, entry *models.EventDLQ) error
	ListByChainGroupID(ctx context.Context, chainGroupID string) ([]models.EventDLQ, error)
	Count(ctx context.Context) (int64, error)
}

type dlqRepositoryImpl struct {
	db *gorm.DB
}

// NewDLQRepository returns a dead letter repository bound to the provided database.
func NewDLQRepository(conn *gorm.DB) DLQRepository {
	return &dlqRepositoryImpl{db: conn}
}

func (r *dlqRepositoryImpl) WithTx(tx *gorm.DB) DLQRepository {
	if tx == nil {
		return r
	}
	return &dlqRepositoryImpl{db: tx}
}

func (r *dlqRepositoryImpl) Insert(ctx context.Context, entry *models.EventDLQ) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *dlqRepositoryImpl) ListByChainGroupID(ctx context.Context, chainGroupID string) ([]models.EventDLQ, error) {
	var rows []models.EventDLQ
	err := r.db.WithContext(ctx).
		Where("chain_group_id = ?", chainGroupID).
		Order("failed_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *dlqRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventDLQ{}).Count(&count).Error
	return count, err
}
