// Package dashboard composes the per-user overview payload: identity, plan,
// and character balance. Clients derive their quota gating from this payload,
// so the shape is load bearing.
package dashboard

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

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type usageService interface {
	Balance(ctx context.Context, userID uuid.UUID) (*models.Usage, error)
}

type plansService interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type subscriptionsService interface {
	ActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// View is the dashboard payload.
type View struct {
	User         UserView          `json:"user"`
	Usage        UsageView         `json:"usage"`
	Subscription *SubscriptionView `json:"subscription,omitempty"`
}

// UserView identifies the caller.
type UserView struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	HasSubscription bool      `json:"has_subscription"`
}

// UsageView carries the character balance. When the user has no active
// subscription every figure is zero, even if a stale usage row survives.
type UsageView struct {
	CharactersUsed      int64      `json:"characters_used"`
	TotalCharacters     int64      `json:"total_characters"`
	CharactersRemaining int64      `json:"characters_remaining"`
	LastGeneratedAt     *time.Time `json:"last_generated_at,omitempty"`
}

// SubscriptionView names the active plan.
type SubscriptionView struct {
	PlanName string `json:"plan_name"`
	Status   string `json:"status"`
}

// Service composes the dashboard overview.
type Service interface {
	Overview(ctx context.Context, userID uuid.UUID) (*View, error)
}

type service struct {
	users usersRepository
	usage usageService
	plans plansService
	subs  subscriptionsService
}

// ServiceParams collects the dashboard service dependencies.
type ServiceParams struct {
	Users         usersRepository
	Usage         usageService
	Plans         plansService
	Subscriptions subscriptionsService
}

// NewService builds a dashboard service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage service required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plan service required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	return &service{
		users: params.Users,
		usage: params.Usage,
		plans: params.Plans,
		subs:  params.Subscriptions,
	}, nil
}

func (s *service) Overview(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	sub, err := s.subs.ActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &View{
		User: UserView{
			ID:              user.ID,
			Email:           user.Email,
			Name:            user.DisplayName(),
			HasSubscription: sub != nil,
		},
	}

	if sub == nil {
		return view, nil
	}

	plan, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	view.Subscription = &SubscriptionView{
		PlanName: plan.Name,
		Status:   string(sub.Status),
	}

	balance, err := s.usage.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.Usage = UsageView{
		CharactersUsed:      balance.CharactersUsed,
		TotalCharacters:     plan.CharacterLimit,
		CharactersRemaining: balance.CharactersRemaining,
		LastGeneratedAt:     balance.LastGeneratedAt,
	}
	return view, nil
}
