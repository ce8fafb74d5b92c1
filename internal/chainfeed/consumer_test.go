package chainfeed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

type stubIngester struct {
	batches [][]ingest.RawEvent
	results []ingest.Result
	err     error
}

func (s *stubIngester) IngestBatch(_ context.Context, events []ingest.RawEvent) ([]ingest.Result, error) {
	s.batches = append(s.batches, events)
	return s.results, s.err
}

func newTestConsumer(t *testing.T, ingester Ingester) *Consumer {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "chainfeed-test", Output: io.Discard})
	consumer, err := NewConsumer(&gcppubsub.Subscriber{}, ingester, logg)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return consumer
}

func eventMessage(t *testing.T, payload any) *gcppubsub.Message {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &gcppubsub.Message{ID: "msg-1", Data: data}
}

func TestProcessSingleEvent(t *testing.T) {
	ingester := &stubIngester{results: []ingest.Result{{DedupKey: "k", Outcome: ingest.OutcomeApplied}}}
	consumer := newTestConsumer(t, ingester)

	msg := eventMessage(t, ingest.RawEvent{
		EventType:       "GroupCreated",
		ContractAddress: "0xc",
		TransactionHash: "0xt",
		EventData:       json.RawMessage(`{"groupId":"grp-1"}`),
	})
	res := consumer.process(context.Background(), msg)
	if res.nack {
		t.Fatal("expected ack")
	}
	if len(ingester.batches) != 1 || len(ingester.batches[0]) != 1 {
		t.Fatalf("expected one single-event batch, got %v", ingester.batches)
	}
}

func TestProcessBatchEnvelope(t *testing.T) {
	ingester := &stubIngester{}
	consumer := newTestConsumer(t, ingester)

	msg := eventMessage(t, map[string]any{
		"events": []ingest.RawEvent{
			{EventType: "GroupCreated", ContractAddress: "0xc", TransactionHash: "0xt1", EventData: json.RawMessage(`{}`)},
			{EventType: "Payment", ContractAddress: "0xc", TransactionHash: "0xt2", EventData: json.RawMessage(`{}`)},
		},
	})
	res := consumer.process(context.Background(), msg)
	if res.nack {
		t.Fatal("expected ack")
	}
	if len(ingester.batches) != 1 || len(ingester.batches[0]) != 2 {
		t.Fatalf("expected one two-event batch, got %v", ingester.batches)
	}
}

func TestProcessUndecodableMessageAcked(t *testing.T) {
	ingester := &stubIngester{}
	consumer := newTestConsumer(t, ingester)

	msg := &gcppubsub.Message{ID: "msg-1", Data: []byte("not json")}
	res := consumer.process(context.Background(), msg)
	if res.nack {
		t.Fatal("undecodable messages must be acked, not redelivered")
	}
	if len(ingester.batches) != 0 {
		t.Fatal("ingester should not run for undecodable messages")
	}
}

func TestProcessStoreFailureNacks(t *testing.T) {
	ingester := &stubIngester{err: errors.New("db down")}
	consumer := newTestConsumer(t, ingester)

	msg := eventMessage(t, ingest.RawEvent{
		EventType:       "Payment",
		ContractAddress: "0xc",
		TransactionHash: "0xt",
		EventData:       json.RawMessage(`{}`),
	})
	res := consumer.process(context.Background(), msg)
	if !res.nack {
		t.Fatal("expected nack when the event store is unreachable")
	}
}

func TestProcessFailedOutcomeStillAcks(t *testing.T) {
	ingester := &stubIngester{results: []ingest.Result{{DedupKey: "k", Outcome: ingest.OutcomeFailed, Error: "boom"}}}
	consumer := newTestConsumer(t, ingester)

	msg := eventMessage(t, ingest.RawEvent{
		EventType:       "Payment",
		ContractAddress: "0xc",
		TransactionHash: "0xt",
		EventData:       json.RawMessage(`{}`),
	})
	res := consumer.process(context.Background(), msg)
	if res.nack {
		t.Fatal("per-event failures are retried via the stuck-row cron, not nacks")
	}
}
