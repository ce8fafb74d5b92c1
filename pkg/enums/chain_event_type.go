package enums

import "fmt"

// ChainEventType tags the ledger-emitted events the mirror knows how to apply.
type ChainEventType string

const (
	ChainEventGroupCreated         ChainEventType = "GroupCreated"
	ChainEventGroupUpdated         ChainEventType = "GroupUpdated"
	ChainEventGroupUpdateRequested ChainEventType = "GroupUpdateRequested"
	ChainEventGroupUpdateApproved  ChainEventType = "GroupUpdateApproved"
	ChainEventGroupUpdateExecuted  ChainEventType = "GroupUpdateExecuted"
	ChainEventPayment              ChainEventType = "Payment"
)

var validChainEventTypes = []ChainEventType{
	ChainEventGroupCreated,
	ChainEventGroupUpdated,
	ChainEventGroupUpdateRequested,
	ChainEventGroupUpdateApproved,
	ChainEventGroupUpdateExecuted,
	ChainEventPayment,
}

// IsValid reports whether the value is an event type this mirror handles.
// Unknown types are still persisted, just never dispatched.
func (c ChainEventType) IsValid() bool {
	for _, candidate := range validChainEventTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChainEventType converts the raw string to ChainEventType.
func ParseChainEventType(value string) (ChainEventType, error) {
	for _, candidate := range validChainEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid chain event type %q", value)
}
