package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// Payment is one immutable ledger row mirrored from a chain payment event.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID         uuid.UUID           `gorm:"column:group_id;type:uuid;not null;index"`
	FromAddress     string              `gorm:"column:from_address;not null;index"`
	ToAddress       string              `gorm:"column:to_address;not null;index"`
	Amount          types.Amount        `gorm:"column:amount;type:numeric(78,0);not null"`
	TokenAddress    *string             `gorm:"column:token_address"`
	TransactionHash string              `gorm:"column:transaction_hash;not null"`
	BlockNumber     int64               `gorm:"column:block_number;not null"`
	LogIndex        int                 `gorm:"column:log_index;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	ErrorMessage    *string             `gorm:"column:error_message"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
