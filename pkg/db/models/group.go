package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// Group mirrors an on-chain fund sharing group. Version is the optimistic
// concurrency column; every applied event bumps it.
type Group struct {
	ID               uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ChainGroupID     string        `gorm:"column:chain_group_id;not null;uniqueIndex"`
	Name             string        `gorm:"column:name;not null"`
	Amount           types.Amount  `gorm:"column:amount;type:numeric(78,0);not null"`
	IsPaid           bool          `gorm:"column:is_paid;not null;default:false"`
	CreatorAddress   string        `gorm:"column:creator_address;not null;index"`
	TokenAddress     *string       `gorm:"column:token_address"`
	MemberCount      int           `gorm:"column:member_count;not null;default:0"`
	ApprovalCount    int           `gorm:"column:approval_count;not null;default:0"`
	HasPendingUpdate bool          `gorm:"column:has_pending_update;not null;default:false"`
	TransactionHash  string        `gorm:"column:transaction_hash;not null"`
	BlockNumber      int64         `gorm:"column:block_number;not null"`
	Version          int64         `gorm:"column:version;not null;default:1"`
	Members          []GroupMember `gorm:"foreignKey:GroupID"`
	CreatedAt        time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (g *Group) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
