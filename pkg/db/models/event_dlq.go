package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
)

// EventDLQ captures chain events that exhausted their retries, most commonly
// approvals evicted from the orphan buffer, kept for manual reconciliation.
type EventDLQ struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType       enums.ChainEventType `gorm:"column:event_type;not null"`
	ContractAddress string               `gorm:"column:contract_address;not null"`
	TransactionHash string               `gorm:"column:transaction_hash;not null"`
	LogIndex        int                  `gorm:"column:log_index;not null"`
	ChainGroupID    string               `gorm:"column:chain_group_id;not null;index"`
	EventData       json.RawMessage      `gorm:"column:event_data;type:jsonb;not null"`
	ErrorMessage    *string              `gorm:"column:error_message"`
	AttemptCount    int                  `gorm:"column:attempt_count;not null;default:0"`
	FailedAt        time.Time            `gorm:"column:failed_at;autoCreateTime"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (e *EventDLQ) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (EventDLQ) TableName() string {
	return "event_dlq"
}
