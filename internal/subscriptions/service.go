package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"gorm.io/gorm"
)

type subscriptionsRepository interface {
	Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CancelActive(ctx context.Context, userID uuid.UUID) error
}

type plansService interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type usersRepository interface {
	UpdatePlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID) error
}

type usageService interface {
	ResetAllowance(ctx context.Context, userID uuid.UUID, limit int64) error
}

// Service exposes plan subscription operations.
type Service interface {
	// Subscribe puts the user on the given plan. An existing active
	// subscription is canceled first; the character allowance resets to the
	// new plan's limit either way.
	Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error)
	// ActiveSubscription returns the user's active subscription, nil when none.
	ActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	// Cancel ends the user's active subscription.
	Cancel(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo  subscriptionsRepository
	plans plansService
	users usersRepository
	usage usageService
}

// ServiceParams collects the subscription service dependencies.
type ServiceParams struct {
	Repo  subscriptionsRepository
	Plans plansService
	Users usersRepository
	Usage usageService
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plan service required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage service required")
	}
	return &service{
		repo:  params.Repo,
		plans: params.Plans,
		users: params.Users,
		usage: params.Usage,
	}, nil
}

func (s *service) Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup active subscription")
	}
	if current != nil && current.PlanID == plan.ID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "already subscribed to this plan")
	}
	if current != nil {
		if err := s.repo.CancelActive(ctx, userID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel current subscription")
		}
	}

	sub, err := s.repo.Create(ctx, &models.Subscription{
		UserID: userID,
		PlanID: plan.ID,
		Status: models.SubscriptionStatusActive,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}

	planID = plan.ID
	if err := s.users.UpdatePlan(ctx, userID, &planID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user plan")
	}
	if err := s.usage.ResetAllowance(ctx, userID, plan.CharacterLimit); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *service) ActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	sub, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup active subscription")
	}
	return sub, nil
}

func (s *service) Cancel(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if _, err := s.repo.FindActiveByUserID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup active subscription")
	}

	if err := s.repo.CancelActive(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
	}
	if err := s.users.UpdatePlan(ctx, userID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear user plan")
	}
	if err := s.usage.ResetAllowance(ctx, userID, 0); err != nil {
		return err
	}
	return nil
}
