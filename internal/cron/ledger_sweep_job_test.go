package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

type fakeSweeper struct {
	expired int
	err     error
	calls   int
}

func (f *fakeSweeper) Sweep(context.Context) (int, error) {
	f.calls++
	return f.expired, f.err
}

func TestLedgerSweepJobRunsSweep(t *testing.T) {
	sweeper := &fakeSweeper{expired: 2}
	job, err := NewLedgerSweepJob(LedgerSweepJobParams{
		Ledger: sweeper,
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("sweep called %d times", sweeper.calls)
	}
}

func TestLedgerSweepJobPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("storage write failed")}
	job, err := NewLedgerSweepJob(LedgerSweepJobParams{
		Ledger: sweeper,
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
