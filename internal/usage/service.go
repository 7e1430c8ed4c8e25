package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"gorm.io/gorm"
)

type usageRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Usage, error)
	Deduct(ctx context.Context, userID uuid.UUID, count int64, at time.Time) (bool, error)
	Credit(ctx context.Context, userID uuid.UUID, count int64) error
	Reset(ctx context.Context, userID uuid.UUID, limit int64) error
}

// Service exposes character-balance operations.
type Service interface {
	// Balance returns the user's current usage row. Users who never
	// subscribed get a zero balance rather than an error.
	Balance(ctx context.Context, userID uuid.UUID) (*models.Usage, error)
	// Consume charges count characters, failing when the balance is short.
	Consume(ctx context.Context, userID uuid.UUID, count int64) (*models.Usage, error)
	// Refund returns count characters after a failed generation.
	Refund(ctx context.Context, userID uuid.UUID, count int64) error
	// ResetAllowance restores the full plan allowance, e.g. on plan change.
	ResetAllowance(ctx context.Context, userID uuid.UUID, limit int64) error
}

type service struct {
	repo usageRepository
	now  func() time.Time
}

// NewService builds a usage service backed by the provided repository.
func NewService(repo usageRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.Usage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	row, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Usage{UserID: userID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup usage")
	}
	return row, nil
}

func (s *service) Consume(ctx context.Context, userID uuid.UUID, count int64) (*models.Usage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "character count must be positive")
	}

	charged, err := s.repo.Deduct(ctx, userID, count, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct usage")
	}
	if !charged {
		return nil, pkgerrors.New(pkgerrors.CodeExhausted, "not enough characters remaining")
	}

	row, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload usage")
	}
	return row, nil
}

func (s *service) Refund(ctx context.Context, userID uuid.UUID, count int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if count <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "character count must be positive")
	}
	if err := s.repo.Credit(ctx, userID, count); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit usage")
	}
	return nil
}

func (s *service) ResetAllowance(ctx context.Context, userID uuid.UUID, limit int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if limit < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "allowance must not be negative")
	}
	if err := s.repo.Reset(ctx, userID, limit); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset usage")
	}
	return nil
}
