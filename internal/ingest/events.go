package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// RawEvent is one inbound ledger event, the shape both the webhook and the
// Pub/Sub feed deliver.
type RawEvent struct {
	EventType       string          `json:"eventType" validate:"required"`
	ContractAddress string          `json:"contractAddress" validate:"required"`
	TransactionHash string          `json:"transactionHash" validate:"required"`
	BlockNumber     int64           `json:"blockNumber" validate:"gte=0"`
	LogIndex        int             `json:"logIndex" validate:"gte=0"`
	EventData       json.RawMessage `json:"eventData" validate:"required"`
}

// DedupKey renders the event's identity for redis fast-path checks and logs.
func (e RawEvent) DedupKey() string {
	return fmt.Sprintf("%s:%s:%d",
		strings.ToLower(e.ContractAddress),
		strings.ToLower(e.TransactionHash),
		e.LogIndex)
}

// GroupCreatedData is the payload of a GroupCreated event.
type GroupCreatedData struct {
	GroupID      string             `json:"groupId"`
	Name         string             `json:"name"`
	Amount       types.Amount       `json:"amount"`
	Creator      string             `json:"creator"`
	TokenAddress string             `json:"tokenAddress"`
	Members      types.MemberShares `json:"members"`
}

// GroupUpdatedData is the payload of a GroupUpdated event: terminal update
// effects delivered without the request/approve cycle.
type GroupUpdatedData struct {
	GroupID    string             `json:"groupId"`
	NewName    string             `json:"newName"`
	NewAmount  types.Amount       `json:"newAmount"`
	NewMembers types.MemberShares `json:"newMembers"`
}

// UpdateRequestedData is the payload of a GroupUpdateRequested event.
type UpdateRequestedData struct {
	GroupID    string             `json:"groupId"`
	Requester  string             `json:"requester"`
	NewName    string             `json:"newName"`
	NewAmount  types.Amount       `json:"newAmount"`
	NewMembers types.MemberShares `json:"newMembers"`
}

// UpdateApprovedData is the payload of a GroupUpdateApproved event.
type UpdateApprovedData struct {
	GroupID  string `json:"groupId"`
	Approver string `json:"approver"`
}

// UpdateExecutedData is the payload of a GroupUpdateExecuted event.
type UpdateExecutedData struct {
	GroupID  string `json:"groupId"`
	Executor string `json:"executor"`
}

// PaymentData is the payload of a Payment event.
type PaymentData struct {
	GroupID      string       `json:"groupId"`
	FromAddress  string       `json:"fromAddress"`
	ToAddress    string       `json:"toAddress"`
	Amount       types.Amount `json:"amount"`
	TokenAddress string       `json:"tokenAddress"`
}

func decodeData[T any](raw json.RawMessage) (*T, error) {
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding event data: %w", err)
	}
	return &data, nil
}
