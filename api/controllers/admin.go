package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/api/responses"
	"github.com/vocalize-ai/vocalize-backend/api/validators"
	"github.com/vocalize-ai/vocalize-backend/internal/admin"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

type assignPlanPayload struct {
	Email  string    `json:"email" validate:"required,email"`
	PlanID uuid.UUID `json:"plan_id" validate:"required"`
}

// AdminStats serves the platform counters.
func AdminStats(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		stats, err := svc.Overview(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminAssignPlan puts a user on a plan by email.
func AdminAssignPlan(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var payload assignPlanPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.AssignPlan(ctx, payload.Email, payload.PlanID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}
