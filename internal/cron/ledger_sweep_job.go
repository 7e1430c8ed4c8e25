package cron

import (
	"context"
	"fmt"

	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

type subscriptionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// LedgerSweepJob expires stale ledger subscriptions and persists the result.
type LedgerSweepJob struct {
	ledger subscriptionSweeper
	logg   *logger.Logger
}

// LedgerSweepJobParams configure a ledger sweep job.
type LedgerSweepJobParams struct {
	Ledger subscriptionSweeper
	Logger *logger.Logger
}

// NewLedgerSweepJob builds a sweep job bound to the given ledger.
func NewLedgerSweepJob(params LedgerSweepJobParams) (*LedgerSweepJob, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LedgerSweepJob{ledger: params.Ledger, logg: params.Logger}, nil
}

// Name identifies the job in logs and metrics.
func (j *LedgerSweepJob) Name() string { return "ledger_sweep" }

// Run performs one sweep pass.
func (j *LedgerSweepJob) Run(ctx context.Context) error {
	expired, err := j.ledger.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep ledger: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", expired), "ledger sweep expired subscriptions")
	}
	return nil
}
