package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupMember is one roster entry. Rows are replaced wholesale when an update
// request executes, never edited in place.
type GroupMember struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID           uuid.UUID  `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_group_members_group_addr"`
	MemberAddress     string     `gorm:"column:member_address;not null;uniqueIndex:idx_group_members_group_addr;index"`
	Percentage        int        `gorm:"column:percentage;not null"`
	HasApprovedUpdate bool       `gorm:"column:has_approved_update;not null;default:false"`
	LastApprovalAt    *time.Time `gorm:"column:last_approval_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *GroupMember) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
