package idempotency

import (
	"context"
	"errors"
	"fmt"

	"time"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/redis"
)

// Manager tracks processed chain events per consumer using Redis SETNX with a
// TTL. Keys follow the `sp:idempotency:evt:<consumer>:<event_key>` pattern.
// This is a fast-path guard only; the chain_events unique index is the source
// of truth, so a redis flush costs a round trip, never correctness.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks events as seen for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkSeen returns true if the event key was already marked and
// otherwise marks it with the configured TTL.
func (m *Manager) CheckAndMarkSeen(ctx context.Context, consumer, eventKey string) (bool, error) {
	key, err := m.seenKey(consumer, eventKey)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete clears the mark so the event can pass the fast path again.
func (m *Manager) Delete(ctx context.Context, consumer, eventKey string) error {
	key, err := m.seenKey(consumer, eventKey)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) seenKey(consumer, eventKey string) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventKey == "" {
		return "", errors.New("event key is required")
	}
	return m.store.IdempotencyKey("evt", fmt.Sprintf("%s:%s", consumer, eventKey)), nil
}
