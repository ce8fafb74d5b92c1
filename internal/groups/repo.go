package groups

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/pagination"
)

// ErrVersionConflict signals the optimistic write lost the race and the whole
// event transaction should be retried against fresh state.
var ErrVersionConflict = errors.New("group version conflict")

// Repository exposes persistence helpers for groups and their rosters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error)
	GetByChainID(ctx context.Context, chainGroupID string) (*models.Group, error)
	List(ctx context.Context, params listGroupsParams) ([]models.Group, *pagination.Cursor, error)
	ListByParticipant(ctx context.Context, address string) ([]models.Group, error)
	UpdateVersioned(ctx context.Context, group *models.Group) error
	ReplaceMembers(ctx context.Context, groupID uuid.UUID, members []models.GroupMember) error
	MarkMemberApproved(ctx context.Context, groupID uuid.UUID, address string) (bool, error)
	ForEach(ctx context.Context, batchSize int, fn func(group *models.Group) error) error
	CountAll(ctx context.Context) (int64, error)
	CountPaid(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a groups repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listGroupsParams struct {
	IsPaid *bool
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).
		Preload("Members").
		First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repositoryImpl) GetByChainID(ctx context.Context, chainGroupID string) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).
		Preload("Members").
		First(&group, "chain_group_id = ?", chainGroupID).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listGroupsParams) ([]models.Group, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Group{}).Preload("Members")
	if params.IsPaid != nil {
		query = query.Where("is_paid = ?", *params.IsPaid)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var groups []models.Group
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&groups).Error; err != nil {
		return nil, nil, err
	}

	if len(groups) > normalized {
		groups = groups[:normalized]
		last := groups[normalized-1]
		return groups, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return groups, nil, nil
}

func (r *repositoryImpl) ListByParticipant(ctx context.Context, address string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.WithContext(ctx).
		Preload("Members").
		Where("creator_address = ? OR id IN (?)",
			address,
			r.db.Model(&models.GroupMember{}).Select("group_id").Where("member_address = ?", address),
		).
		Order("created_at DESC").
		Find(&groups).Error
	return groups, err
}

// UpdateVersioned writes the group only if its version column still matches
// the value it was read with, then bumps it. RowsAffected == 0 means another
// writer got there first.
func (r *repositoryImpl) UpdateVersioned(ctx context.Context, group *models.Group) error {
	currentVersion := group.Version
	group.Version = currentVersion + 1
	result := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("id = ? AND version = ?", group.ID, currentVersion).
		Select("name", "amount", "is_paid", "member_count", "approval_count",
			"has_pending_update", "transaction_hash", "block_number", "version", "updated_at").
		Updates(group)
	if result.Error != nil {
		group.Version = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		group.Version = currentVersion
		return ErrVersionConflict
	}
	return nil
}

func (r *repositoryImpl) ReplaceMembers(ctx context.Context, groupID uuid.UUID, members []models.GroupMember) error {
	if err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Delete(&models.GroupMember{}).Error; err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	for i := range members {
		members[i].GroupID = groupID
	}
	return r.db.WithContext(ctx).Create(&members).Error
}

// MarkMemberApproved flips the member's approval flag if not already set.
// Returns false when the flag was already set or the member does not exist.
func (r *repositoryImpl) MarkMemberApproved(ctx context.Context, groupID uuid.UUID, address string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND member_address = ? AND has_approved_update = ?", groupID, address, false).
		Updates(map[string]any{
			"has_approved_update": true,
			"last_approval_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ForEach walks every group with its roster loaded, oldest first.
func (r *repositoryImpl) ForEach(ctx context.Context, batchSize int, fn func(group *models.Group) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	var rows []models.Group
	return r.db.WithContext(ctx).
		Preload("Members").
		Order("created_at ASC").
		FindInBatches(&rows, batchSize, func(_ *gorm.DB, _ int) error {
			for i := range rows {
				if err := fn(&rows[i]); err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func (r *repositoryImpl) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Group{}).Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CountPaid(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Group{}).Where("is_paid = ?", true).Count(&count).Error
	return count, err
}
