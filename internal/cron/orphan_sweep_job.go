package cron

import (
	"context"
	"fmt"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
)

type orphanSweeper interface {
	SweepOrphans(ctx context.Context) int
	OrphanCount() int
}

// OrphanSweepJobParams configure the buffered approval sweep.
type OrphanSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper orphanSweeper
}

// NewOrphanSweepJob retries approvals still waiting for their update request,
// catching groups whose request arrived on another instance or never at all.
func NewOrphanSweepJob(params OrphanSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("ingest service required")
	}
	return &orphanSweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
	}, nil
}

type orphanSweepJob struct {
	logg    *logger.Logger
	sweeper orphanSweeper
}

func (j *orphanSweepJob) Name() string { return "orphan-approval-sweep" }

func (j *orphanSweepJob) Run(ctx context.Context) error {
	attempted := j.sweeper.SweepOrphans(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"attempted": attempted,
		"remaining": j.sweeper.OrphanCount(),
	})
	j.logg.Info(logCtx, "orphan approval sweep complete")
	return nil
}
