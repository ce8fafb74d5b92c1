package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// UpdateRequest is a proposed group mutation awaiting unanimous approval.
// At most one open (not completed) request exists per group.
type UpdateRequest struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID          uuid.UUID          `gorm:"column:group_id;type:uuid;not null;index"`
	RequesterAddress string             `gorm:"column:requester_address;not null"`
	NewName          string             `gorm:"column:new_name;not null"`
	NewAmount        types.Amount       `gorm:"column:new_amount;type:numeric(78,0);not null"`
	ProposedMembers  types.MemberShares `gorm:"column:proposed_members;type:jsonb;not null"`
	ApprovalCount    int                `gorm:"column:approval_count;not null;default:0"`
	ReadyNotified    bool               `gorm:"column:ready_notified;not null;default:false"`
	IsCompleted      bool               `gorm:"column:is_completed;not null;default:false"`
	TransactionHash  string             `gorm:"column:transaction_hash;not null"`
	BlockNumber      int64              `gorm:"column:block_number;not null"`
	ExecutedAt       *time.Time         `gorm:"column:executed_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *UpdateRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
