package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

const defaultSubscriberBuffer = 64

// Broker fans committed-event notifications out to in-process subscribers.
// Delivery is at-least-once per subscriber: a subscriber matching several
// topics of one message may receive it more than once, and slow subscribers
// have messages dropped rather than blocking the publisher.
type Broker struct {
	logg *logger.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]*subscription
}

type subscription struct {
	id     uuid.UUID
	topics map[string]struct{} // empty means all messages
	ch     chan Message
}

// Subscription is a live feed handle. Close it via the broker's Unsubscribe.
type Subscription struct {
	ID uuid.UUID
	C  <-chan Message
}

// NewBroker builds an empty broker.
func NewBroker(logg *logger.Logger) *Broker {
	return &Broker{
		logg: logg,
		subs: make(map[uuid.UUID]*subscription),
	}
}

// Subscribe registers a subscriber for the given topics. An empty topic list
// subscribes to every message.
func (b *Broker) Subscribe(topics ...string) *Subscription {
	sub := &subscription{
		id:     uuid.New(),
		topics: make(map[string]struct{}, len(topics)),
		ch:     make(chan Message, defaultSubscriberBuffer),
	}
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		sub.topics[topic] = struct{}{}
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return &Subscription{ID: sub.id, C: sub.ch}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Broker) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// Publish delivers the message to every matching subscriber. Full subscriber
// buffers are skipped so a stalled consumer cannot back up ingestion.
func (b *Broker) Publish(ctx context.Context, msg Message) {
	topics := msg.Topics()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.matches(topics) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			if b.logg != nil {
				dropCtx := b.logg.WithField(ctx, "subscriber_id", sub.id.String())
				b.logg.Warn(dropCtx, "subscriber buffer full, dropping notification")
			}
		}
	}
}

// PublishAll delivers a batch in order.
func (b *Broker) PublishAll(ctx context.Context, msgs []Message) {
	for _, msg := range msgs {
		b.Publish(ctx, msg)
	}
}

// SubscriberCount reports how many subscribers are registered.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (s *subscription) matches(topics []string) bool {
	if len(s.topics) == 0 {
		return true
	}
	for _, topic := range topics {
		if _, ok := s.topics[topic]; ok {
			return true
		}
	}
	return false
}
