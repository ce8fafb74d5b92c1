package enums

import "fmt"

// ChainEventStatus tracks how far an ingested event has progressed.
// An event stuck in `received` is a redelivery candidate; `applied` is the
// deduplication guard.
type ChainEventStatus string

const (
	ChainEventStatusReceived ChainEventStatus = "received"
	ChainEventStatusApplied  ChainEventStatus = "applied"
)

var validChainEventStatuses = []ChainEventStatus{
	ChainEventStatusReceived,
	ChainEventStatusApplied,
}

// IsValid reports whether the value matches the canonical event status enum.
func (c ChainEventStatus) IsValid() bool {
	for _, candidate := range validChainEventStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChainEventStatus converts the raw string to ChainEventStatus.
func ParseChainEventStatus(value string) (ChainEventStatus, error) {
	for _, candidate := range validChainEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid chain event status %q", value)
}
