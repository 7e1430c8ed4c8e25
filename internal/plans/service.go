package plans

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"gorm.io/gorm"
)

type plansRepository interface {
	List(ctx context.Context) ([]models.Plan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

// Service exposes the plan catalog.
type Service interface {
	ListPlans(ctx context.Context) ([]PlanView, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type service struct {
	repo plansRepository
}

// PlanView is the catalog entry returned to clients.
type PlanView struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	CharacterLimit int64     `json:"character_limit"`
	Price          string    `json:"price"`
}

// NewService builds a plan service backed by the provided repository.
func NewService(repo plansRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("plan repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListPlans(ctx context.Context) ([]PlanView, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	views := make([]PlanView, len(rows))
	for i, row := range rows {
		views[i] = PlanView{
			ID:             row.ID,
			Name:           row.Name,
			CharacterLimit: row.CharacterLimit,
			Price:          row.Price.StringFixed(2),
		}
	}
	return views, nil
}

func (s *service) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	return plan, nil
}
