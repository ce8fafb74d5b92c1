package chainfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

// Ingester is the slice of the ingest pipeline the feed consumer needs.
type Ingester interface {
	IngestBatch(ctx context.Context, events []ingest.RawEvent) ([]ingest.Result, error)
}

// Consumer pulls chain events off Pub/Sub and feeds them to the ingest
// pipeline. Messages carry either a single event or an {"events": [...]}
// batch envelope.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	ingester     Ingester
	logg         *logger.Logger
}

// NewConsumer builds the chain feed consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, ingester Ingester, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("chain events subscription is required")
	}
	if ingester == nil {
		return nil, errors.New("ingest service is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		ingester:     ingester,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes chain event messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	events, err := decodeBatch(msg.Data)
	if err != nil {
		// Malformed payloads never become processable; redelivery would loop.
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "dropping undecodable chain event message")
		return processResult{}
	}
	if len(events) == 0 {
		c.logg.Warn(logCtx, "chain event message carried no events")
		return processResult{}
	}

	results, err := c.ingester.IngestBatch(logCtx, events)
	if err != nil {
		// The event store was unreachable; redeliver and try again.
		c.logg.Error(logCtx, "chain event batch aborted", err)
		return processResult{nack: true}
	}

	for _, result := range results {
		resCtx := c.logg.WithFields(logCtx, map[string]any{
			"dedup_key": result.DedupKey,
			"outcome":   string(result.Outcome),
		})
		switch result.Outcome {
		case ingest.OutcomeFailed:
			// The claim row stays in status received; the redelivery cron
			// picks it up, so the message itself is acked.
			c.logg.Warn(resCtx, "chain event not applied")
		default:
			c.logg.Info(resCtx, "chain event processed")
		}
	}
	return processResult{}
}

// decodeBatch accepts both the batch envelope and a bare single event.
func decodeBatch(data []byte) ([]ingest.RawEvent, error) {
	var envelope struct {
		Events []ingest.RawEvent `json:"events"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Events) > 0 {
		return envelope.Events, nil
	}

	var single ingest.RawEvent
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("decode chain event message: %w", err)
	}
	if single.EventType == "" {
		return nil, errors.New("chain event message missing eventType")
	}
	return []ingest.RawEvent{single}, nil
}
