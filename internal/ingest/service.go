package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/internal/participants"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/internal/updates"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/idempotency"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/metrics"
)

// idemConsumer scopes redis fast-path keys for the ingest pipeline.
const idemConsumer = "ingest"

// Service is the write side of the mirror: it turns raw chain events into
// relational state and post-commit notifications.
type Service interface {
	// IngestBatch applies events in order. Per-event failures are reported in
	// the matching Result; a non-nil error means the event store itself was
	// unreachable and the remainder of the batch was not attempted.
	IngestBatch(ctx context.Context, events []RawEvent) ([]Result, error)
	// Replay re-applies a previously claimed event, used by the redelivery
	// cron for rows stuck in status received.
	Replay(ctx context.Context, event *models.ChainEvent) Result
	// SweepOrphans retries every buffered out-of-order approval and returns
	// how many were attempted.
	SweepOrphans(ctx context.Context) int
	// OrphanCount reports how many approvals are currently buffered.
	OrphanCount() int
}

type service struct {
	client       *db.Client
	events       Repository
	dlq          DLQRepository
	groups       groups.Repository
	updates      updates.Repository
	payments     payments.Repository
	participants participants.Repository
	broker       *notify.Broker
	idem         *idempotency.Manager
	metrics      *metrics.IngestMetrics
	logg         *logger.Logger

	casMaxRetries int
	casBackoff    time.Duration
	orphans       *orphanBuffer
	handlers      map[enums.ChainEventType]handlerFunc
}

// NewService wires the ingest pipeline. The idempotency manager and metrics
// are optional; everything else is required.
func NewService(
	client *db.Client,
	events Repository,
	dlq DLQRepository,
	groupsRepo groups.Repository,
	updatesRepo updates.Repository,
	paymentsRepo payments.Repository,
	participantsRepo participants.Repository,
	broker *notify.Broker,
	idem *idempotency.Manager,
	ingestMetrics *metrics.IngestMetrics,
	cfg config.EventingConfig,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest service requires a db client")
	}
	if events == nil || dlq == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest service requires event repositories")
	}
	if groupsRepo == nil || updatesRepo == nil || paymentsRepo == nil || participantsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest service requires domain repositories")
	}
	if broker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest service requires a notification broker")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ingest service requires a logger")
	}

	s := &service{
		client:        client,
		events:        events,
		dlq:           dlq,
		groups:        groupsRepo,
		updates:       updatesRepo,
		payments:      paymentsRepo,
		participants:  participantsRepo,
		broker:        broker,
		idem:          idem,
		metrics:       ingestMetrics,
		logg:          logg,
		casMaxRetries: cfg.CASMaxRetries,
		casBackoff:    cfg.CASRetryBackoff,
		orphans:       newOrphanBuffer(cfg.OrphanQueueCap, cfg.OrphanMaxAttempts),
	}
	s.handlers = s.handlerRegistry()
	return s, nil
}

func (s *service) IngestBatch(ctx context.Context, events []RawEvent) ([]Result, error) {
	results := make([]Result, 0, len(events))
	for _, raw := range events {
		result, err := s.ingestOne(ctx, raw)
		results = append(results, result)
		if err != nil {
			return results, err
		}
		if result.Outcome == OutcomeApplied && unblocksOrphans(raw.EventType) {
			if chainGroupID := extractChainGroupID(raw.EventData); chainGroupID != "" {
				s.drainOrphans(ctx, chainGroupID)
			}
		}
	}
	return results, nil
}

func (s *service) Replay(ctx context.Context, event *models.ChainEvent) Result {
	raw := RawEvent{
		EventType:       string(event.EventType),
		ContractAddress: event.ContractAddress,
		TransactionHash: event.TransactionHash,
		BlockNumber:     event.BlockNumber,
		LogIndex:        event.LogIndex,
		EventData:       event.EventData,
	}
	result := Result{DedupKey: raw.DedupKey()}
	outcome, applyErr, infraErr := s.apply(ctx, raw, 0)
	if infraErr != nil {
		result.Outcome = OutcomeFailed
		result.Error = infraErr.Error()
		return result
	}
	result.Outcome = outcome
	if applyErr != nil {
		result.Error = applyErr.Error()
	}
	s.observeOutcome(raw.EventType, outcome)
	return result
}

func (s *service) SweepOrphans(ctx context.Context) int {
	attempted := 0
	for _, chainGroupID := range s.orphans.Groups() {
		attempted += s.drainOrphans(ctx, chainGroupID)
	}
	return attempted
}

func (s *service) OrphanCount() int {
	return s.orphans.Len()
}

func (s *service) ingestOne(ctx context.Context, raw RawEvent) (Result, error) {
	ctx = s.logg.WithEventType(ctx, raw.EventType)
	ctx = s.logg.WithTxHash(ctx, raw.TransactionHash)
	result := Result{DedupKey: raw.DedupKey()}

	if err := validateRaw(raw); err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		s.observeOutcome(raw.EventType, OutcomeFailed)
		return result, nil
	}

	// Redis fast path is advisory; the unique index on chain_events is the
	// source of truth when redis is cold or unavailable.
	marked := false
	if s.idem != nil {
		seen, err := s.idem.CheckAndMarkSeen(ctx, idemConsumer, result.DedupKey)
		switch {
		case err != nil:
			s.logg.Warn(ctx, "idempotency fast path unavailable, falling back to database")
		case seen:
			result.Outcome = OutcomeDuplicate
			s.observeOutcome(raw.EventType, OutcomeDuplicate)
			return result, nil
		default:
			marked = true
		}
	}

	outcome, applyErr, infraErr := s.apply(ctx, raw, 0)
	if infraErr != nil {
		if marked {
			_ = s.idem.Delete(ctx, idemConsumer, result.DedupKey)
		}
		result.Outcome = OutcomeFailed
		result.Error = infraErr.Error()
		s.observeOutcome(raw.EventType, OutcomeFailed)
		return result, infraErr
	}
	if marked && (outcome == OutcomeFailed || outcome == OutcomeDeferred) {
		// Keep the fast path honest: an unapplied event must stay retryable.
		_ = s.idem.Delete(ctx, idemConsumer, result.DedupKey)
	}

	result.Outcome = outcome
	if applyErr != nil {
		result.Error = applyErr.Error()
	}
	s.observeOutcome(raw.EventType, outcome)
	return result, nil
}

// apply claims the event row and runs its handler. The first error return is
// the per-event verdict; the second means the event store itself failed and
// the batch should stop.
func (s *service) apply(ctx context.Context, raw RawEvent, attempts int) (Outcome, error, error) {
	claim := &models.ChainEvent{
		EventType:       enums.ChainEventType(raw.EventType),
		ContractAddress: raw.ContractAddress,
		TransactionHash: raw.TransactionHash,
		BlockNumber:     raw.BlockNumber,
		LogIndex:        raw.LogIndex,
		EventData:       raw.EventData,
		Status:          enums.ChainEventStatusReceived,
	}
	stored, duplicate, err := s.events.Insert(ctx, claim)
	if err != nil {
		return OutcomeFailed, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claiming chain event")
	}
	if duplicate && stored.Status == enums.ChainEventStatusApplied {
		return OutcomeDuplicate, nil, nil
	}
	// A duplicate row still in status received is a redelivery of an event
	// whose apply never finished; run it again.

	if !stored.EventType.IsValid() {
		if err := s.events.MarkApplied(ctx, stored, time.Now().UTC()); err != nil {
			return OutcomeFailed, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking unknown event applied")
		}
		s.logg.Warn(ctx, "unknown chain event type persisted without effects")
		return OutcomeSkipped, nil, nil
	}
	handler := s.handlers[stored.EventType]

	for attempt := 0; ; attempt++ {
		var msgs []notify.Message
		started := time.Now()
		txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
			out, err := handler(ctx, tx, stored)
			if err != nil {
				return err
			}
			msgs = out
			return s.events.WithTx(tx).MarkApplied(ctx, stored, time.Now().UTC())
		})
		if txErr == nil {
			s.broker.PublishAll(ctx, msgs)
			if s.metrics != nil {
				s.metrics.ObserveApply(raw.EventType, time.Since(started))
			}
			return OutcomeApplied, nil, nil
		}

		if errors.Is(txErr, groups.ErrVersionConflict) {
			if s.metrics != nil {
				s.metrics.IncVersionConflict()
			}
			if attempt < s.casMaxRetries {
				time.Sleep(s.casBackoff)
				continue
			}
			return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeBusy, txErr, "group version contention not resolved"), nil
		}

		if errors.Is(txErr, errOrphanApproval) {
			return s.bufferOrphan(ctx, raw, attempts), nil, nil
		}

		s.logg.Error(ctx, "chain event apply failed", txErr)
		return OutcomeFailed, txErr, nil
	}
}

// bufferOrphan parks an out-of-order approval, evicting to the DLQ when the
// per-group buffer is full.
func (s *service) bufferOrphan(ctx context.Context, raw RawEvent, attempts int) Outcome {
	chainGroupID := extractChainGroupID(raw.EventData)
	if s.orphans.Add(chainGroupID, raw, attempts) {
		if s.metrics != nil {
			s.metrics.IncOrphaned()
		}
		s.logg.Warn(ctx, "approval buffered until its update request arrives")
		return OutcomeDeferred
	}
	s.evictToDLQ(ctx, raw, attempts, "orphan buffer full")
	return OutcomeFailed
}

// drainOrphans retries every buffered approval for one chain group. Approvals
// that orphan again go back to the buffer with their attempt count raised;
// exhausted ones are evicted.
func (s *service) drainOrphans(ctx context.Context, chainGroupID string) int {
	entries := s.orphans.Take(chainGroupID)
	for _, entry := range entries {
		if s.orphans.Exhausted(entry) {
			s.evictToDLQ(ctx, entry.event, entry.attempts, "orphan retries exhausted")
			continue
		}
		outcome, applyErr, infraErr := s.apply(ctx, entry.event, entry.attempts)
		if infraErr != nil {
			s.logg.Error(ctx, "orphan retry hit event store failure", infraErr)
			continue
		}
		if applyErr != nil {
			s.logg.Error(ctx, "orphan retry rejected", applyErr)
		}
		s.observeOutcome(entry.event.EventType, outcome)
	}
	return len(entries)
}

func (s *service) evictToDLQ(ctx context.Context, raw RawEvent, attempts int, reason string) {
	entry := &models.EventDLQ{
		EventType:       enums.ChainEventType(raw.EventType),
		ContractAddress: raw.ContractAddress,
		TransactionHash: raw.TransactionHash,
		LogIndex:        raw.LogIndex,
		ChainGroupID:    extractChainGroupID(raw.EventData),
		EventData:       raw.EventData,
		ErrorMessage:    &reason,
		AttemptCount:    attempts,
	}
	if err := s.dlq.Insert(ctx, entry); err != nil {
		s.logg.Error(ctx, "dead-lettering chain event failed", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncEvicted()
	}
	s.logg.Warn(ctx, "chain event dead-lettered: "+reason)
}

func (s *service) observeOutcome(eventType string, outcome Outcome) {
	if s.metrics != nil {
		s.metrics.IncProcessed(eventType, string(outcome))
	}
}

func validateRaw(raw RawEvent) error {
	if raw.EventType == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "eventType is required")
	}
	if raw.ContractAddress == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "contractAddress is required")
	}
	if raw.TransactionHash == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transactionHash is required")
	}
	if raw.BlockNumber < 0 || raw.LogIndex < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "blockNumber and logIndex must not be negative")
	}
	if len(raw.EventData) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "eventData is required")
	}
	return nil
}

// unblocksOrphans reports whether applying this event type can make buffered
// approvals for its group applicable.
func unblocksOrphans(eventType string) bool {
	switch enums.ChainEventType(eventType) {
	case enums.ChainEventGroupCreated, enums.ChainEventGroupUpdateRequested:
		return true
	default:
		return false
	}
}

func extractChainGroupID(data json.RawMessage) string {
	var envelope struct {
		GroupID string `json:"groupId"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	return envelope.GroupID
}
