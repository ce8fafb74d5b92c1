package notify

import (
	"time"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
)

// Message is one notification fanned out to subscribers after an event commits.
type Message struct {
	Type         enums.NotificationType `json:"type"`
	ChainGroupID string                 `json:"groupId,omitempty"`
	Addresses    []string               `json:"-"`
	Payload      any                    `json:"data,omitempty"`
	EmittedAt    time.Time              `json:"emittedAt"`
}

// Topics returns the fan-out topics this message lands on. One per group plus
// one per targeted address.
func (m Message) Topics() []string {
	topics := []string{}
	if m.ChainGroupID != "" {
		topics = append(topics, GroupTopic(m.ChainGroupID))
	}
	for _, addr := range m.Addresses {
		if addr == "" {
			continue
		}
		topics = append(topics, AddressTopic(addr))
	}
	return topics
}

// GroupTopic names the per-group topic.
func GroupTopic(chainGroupID string) string {
	return "group:" + chainGroupID
}

// AddressTopic names the per-address topic.
func AddressTopic(addr string) string {
	return "addr:" + addr
}
