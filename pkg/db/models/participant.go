package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// Participant aggregates activity per address across all groups. Totals are
// maintained incrementally on ingest and repairable by full replay.
type Participant struct {
	ID                  uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Address             string       `gorm:"column:address;not null;uniqueIndex"`
	Username            *string      `gorm:"column:username"`
	Email               *string      `gorm:"column:email"`
	AvatarURL           *string      `gorm:"column:avatar_url"`
	TotalGroupsCreated  int          `gorm:"column:total_groups_created;not null;default:0"`
	TotalGroupsJoined   int          `gorm:"column:total_groups_joined;not null;default:0"`
	TotalAmountPaid     types.Amount `gorm:"column:total_amount_paid;type:numeric(78,0);not null;default:0"`
	TotalAmountReceived types.Amount `gorm:"column:total_amount_received;type:numeric(78,0);not null;default:0"`
	CreatedAt           time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Participant) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
