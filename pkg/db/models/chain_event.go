package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
)

// ChainEvent is the idempotency record for one chain log. The composite
// unique index on (contract, tx hash, log index) is the dedup key; a row in
// status received marks an event claimed but not yet applied.
type ChainEvent struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType       enums.ChainEventType   `gorm:"column:event_type;not null"`
	ContractAddress string                 `gorm:"column:contract_address;not null;uniqueIndex:idx_chain_events_dedup"`
	TransactionHash string                 `gorm:"column:transaction_hash;not null;uniqueIndex:idx_chain_events_dedup"`
	BlockNumber     int64                  `gorm:"column:block_number;not null"`
	LogIndex        int                    `gorm:"column:log_index;not null;uniqueIndex:idx_chain_events_dedup"`
	EventData       json.RawMessage        `gorm:"column:event_data;type:jsonb;not null"`
	Status          enums.ChainEventStatus `gorm:"column:status;not null;default:'received'"`
	AppliedAt       *time.Time             `gorm:"column:applied_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (e *ChainEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
