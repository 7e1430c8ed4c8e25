package controllers

import (
	"math"
	"net/http"

	"github.com/vocalize-ai/vocalize-backend/api/middleware"
	"github.com/vocalize-ai/vocalize-backend/api/responses"
	"github.com/vocalize-ai/vocalize-backend/api/validators"
	"github.com/vocalize-ai/vocalize-backend/internal/gate"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

// GateCheck answers whether a generation of the given length would fit the
// caller's quota. The decision is advisory: the authoritative charge happens
// on generate. A refused generation is a business outcome, so the response
// is always 200 with allowed true or false.
func GateCheck(reg *gate.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reg == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gate unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		length, err := validators.ParseQueryInt(r, "length", 0, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if length < 1 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "length query parameter is required").WithDetails(map[string]any{"field": "length"}))
			return
		}

		g, err := reg.ForUser(userID.String())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// A failed refresh leaves the gate on its mirrored snapshot; the
		// decision still goes out against the last known figures.
		if _, err := g.Refresh(ctx, middleware.BearerTokenFromContext(ctx)); err != nil {
			logg.Error(ctx, "gate refresh degraded to mirror", err)
		}

		decision := g.CanGenerate(int64(length))
		responses.WriteSuccess(w, map[string]any{
			"allowed":                   decision.Allowed,
			"reason":                    decision.Reason,
			"redirect_to_pricing":       decision.RedirectToPricing,
			"requested":                 decision.Requested,
			"remaining":                 decision.Remaining,
			"severity":                  g.Severity(),
			"needs_subscription_prompt": g.NeedsSubscriptionPrompt(),
		})
	}
}
