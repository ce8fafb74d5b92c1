package updates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
)

// Repository exposes persistence helpers for update requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.UpdateRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UpdateRequest, error)
	GetOpenByGroupID(ctx context.Context, groupID uuid.UUID) (*models.UpdateRequest, error)
	IncrementApproval(ctx context.Context, id uuid.UUID) error
	MarkReadyNotified(ctx context.Context, id uuid.UUID) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, executedAt time.Time) error
	ListByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.UpdateRequest, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an update requests repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.UpdateRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.UpdateRequest, error) {
	var request models.UpdateRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) GetOpenByGroupID(ctx context.Context, groupID uuid.UUID) (*models.UpdateRequest, error) {
	var request models.UpdateRequest
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND is_completed = ?", groupID, false).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) IncrementApproval(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.UpdateRequest{}).
		Where("id = ?", id).
		UpdateColumn("approval_count", gorm.Expr("approval_count + 1")).Error
}

// MarkReadyNotified flips the edge-trigger flag. Returns true only for the
// caller that actually flipped it, so the ready notification fires once.
func (r *repositoryImpl) MarkReadyNotified(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UpdateRequest{}).
		Where("id = ? AND ready_notified = ?", id, false).
		UpdateColumn("ready_notified", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Complete(ctx context.Context, id uuid.UUID, executedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.UpdateRequest{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"is_completed": true,
			"executed_at":  executedAt,
		}).Error
}

func (r *repositoryImpl) ListByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.UpdateRequest, error) {
	var rows []models.UpdateRequest
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
