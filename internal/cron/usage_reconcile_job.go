package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
	"go.uber.org/multierr"
)

type usageReconcileRepository interface {
	ListNegativeRemaining(ctx context.Context) ([]models.Usage, error)
	ClampRemaining(ctx context.Context, id uuid.UUID) error
}

// UsageReconcileJob floors negative character balances at zero. Concurrent
// deductions racing balance edits can briefly drive a row negative; the
// reconciler repairs what the atomic guard could not prevent.
type UsageReconcileJob struct {
	repo usageReconcileRepository
	logg *logger.Logger
}

// UsageReconcileJobParams configure a usage reconcile job.
type UsageReconcileJobParams struct {
	Repo   usageReconcileRepository
	Logger *logger.Logger
}

// NewUsageReconcileJob builds a reconcile job over the usage table.
func NewUsageReconcileJob(params UsageReconcileJobParams) (*UsageReconcileJob, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &UsageReconcileJob{repo: params.Repo, logg: params.Logger}, nil
}

// Name identifies the job in logs and metrics.
func (j *UsageReconcileJob) Name() string { return "usage_reconcile" }

// Run clamps every negative balance, collecting per-row failures so one bad
// row does not stop the rest.
func (j *UsageReconcileJob) Run(ctx context.Context) error {
	rows, err := j.repo.ListNegativeRemaining(ctx)
	if err != nil {
		return fmt.Errorf("list negative balances: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	var errs error
	clamped := 0
	for _, row := range rows {
		if err := j.repo.ClampRemaining(ctx, row.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("clamp usage %s: %w", row.ID, err))
			continue
		}
		clamped++
	}

	if clamped > 0 {
		j.logg.Info(j.logg.WithField(ctx, "clamped", clamped), "usage reconcile repaired negative balances")
	}
	return errs
}
