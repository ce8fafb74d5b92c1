package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/swiftpaylabs/swiftpay-backend/internal/ingest"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

const (
	defaultRedeliveryAge   = 5 * time.Minute
	defaultRedeliveryLimit = 200
)

type stuckEventLister interface {
	ListStuckReceived(ctx context.Context, olderThan time.Time, limit int) ([]models.ChainEvent, error)
}

type eventReplayer interface {
	Replay(ctx context.Context, event *models.ChainEvent) ingest.Result
}

// RedeliveryJobParams configure the stuck event redelivery job.
type RedeliveryJobParams struct {
	Logger   *logger.Logger
	Events   stuckEventLister
	Replayer eventReplayer
	Age      time.Duration
	Limit    int
}

// NewRedeliveryJob re-applies chain events whose claim row is still in status
// received past the age threshold.
func NewRedeliveryJob(params RedeliveryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("chain events repository required")
	}
	if params.Replayer == nil {
		return nil, fmt.Errorf("ingest service required")
	}
	age := params.Age
	if age <= 0 {
		age = defaultRedeliveryAge
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultRedeliveryLimit
	}
	return &redeliveryJob{
		logg:     params.Logger,
		events:   params.Events,
		replayer: params.Replayer,
		age:      age,
		limit:    limit,
		now:      time.Now,
	}, nil
}

type redeliveryJob struct {
	logg     *logger.Logger
	events   stuckEventLister
	replayer eventReplayer
	age      time.Duration
	limit    int
	now      func() time.Time
}

func (j *redeliveryJob) Name() string { return "event-redelivery" }

func (j *redeliveryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)
	stuck, err := j.events.ListStuckReceived(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("listing stuck chain events: %w", err)
	}

	outcomes := map[ingest.Outcome]int{}
	for i := range stuck {
		result := j.replayer.Replay(ctx, &stuck[i])
		outcomes[result.Outcome]++
		if result.Outcome == ingest.OutcomeFailed {
			evtCtx := j.logg.WithFields(ctx, map[string]any{
				"dedup_key": result.DedupKey,
				"error":     result.Error,
			})
			j.logg.Warn(evtCtx, "stuck chain event still not applicable")
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"stuck":     len(stuck),
		"applied":   outcomes[ingest.OutcomeApplied],
		"failed":    outcomes[ingest.OutcomeFailed],
		"deferred":  outcomes[ingest.OutcomeDeferred],
		"duplicate": outcomes[ingest.OutcomeDuplicate],
	})
	j.logg.Info(logCtx, "event redelivery complete")
	return nil
}
