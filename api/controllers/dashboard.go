package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/api/middleware"
	"github.com/vocalize-ai/vocalize-backend/api/responses"
	"github.com/vocalize-ai/vocalize-backend/internal/dashboard"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

// Dashboard returns the caller's overview payload.
func Dashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Overview(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// callerID reads the authenticated user id seeded by the auth middleware.
func callerID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return id, nil
}
