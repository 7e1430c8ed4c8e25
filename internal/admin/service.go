package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"gorm.io/gorm"
)

type statsRepository interface {
	Collect(ctx context.Context) (*Stats, error)
}

type usersRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type subscriptionsService interface {
	Subscribe(ctx context.Context, userID, planID uuid.UUID) (*models.Subscription, error)
	ActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

type plansService interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type usageService interface {
	ResetAllowance(ctx context.Context, userID uuid.UUID, limit int64) error
}

// Service exposes operator actions.
type Service interface {
	// Overview returns the platform-wide counters.
	Overview(ctx context.Context) (*Stats, error)
	// AssignPlan puts the user with the given email on a plan and resets
	// their allowance. Re-assigning the current plan just resets the
	// allowance.
	AssignPlan(ctx context.Context, email string, planID uuid.UUID) (*models.Subscription, error)
}

type service struct {
	repo          statsRepository
	users         usersRepository
	subscriptions subscriptionsService
	plans         plansService
	usage         usageService
}

// ServiceParams collects the admin service dependencies.
type ServiceParams struct {
	Repo          statsRepository
	Users         usersRepository
	Subscriptions subscriptionsService
	Plans         plansService
	Usage         usageService
}

// NewService builds an admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plan service required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage service required")
	}
	return &service{
		repo:          params.Repo,
		users:         params.Users,
		subscriptions: params.Subscriptions,
		plans:         params.Plans,
		usage:         params.Usage,
	}, nil
}

func (s *service) Overview(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Collect(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "collect platform stats")
	}
	return stats, nil
}

func (s *service) AssignPlan(ctx context.Context, email string, planID uuid.UUID) (*models.Subscription, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	sub, err := s.subscriptions.Subscribe(ctx, user.ID, planID)
	if err != nil {
		var typed *pkgerrors.Error
		// Already on the plan: the assignment still resets the allowance,
		// matching a fresh subscription.
		if errors.As(err, &typed) && typed.Code() == pkgerrors.CodeConflict {
			plan, planErr := s.plans.GetPlan(ctx, planID)
			if planErr != nil {
				return nil, planErr
			}
			if resetErr := s.usage.ResetAllowance(ctx, user.ID, plan.CharacterLimit); resetErr != nil {
				return nil, resetErr
			}
			return s.subscriptions.ActiveSubscription(ctx, user.ID)
		}
		return nil, err
	}
	return sub, nil
}
