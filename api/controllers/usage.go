package controllers

import (
	"errors"
	"net/http"

	"github.com/vocalize-ai/vocalize-backend/api/responses"
	"github.com/vocalize-ai/vocalize-backend/api/validators"
	"github.com/vocalize-ai/vocalize-backend/internal/usage"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

type consumePayload struct {
	Characters int64 `json:"characters" validate:"required,gt=0"`
}

// UsageBalance returns the caller's character balance.
func UsageBalance(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.Balance(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"characters_used":      row.CharactersUsed,
			"characters_remaining": row.CharactersRemaining,
			"last_generated_at":    row.LastGeneratedAt,
		})
	}
}

// UsageConsume charges characters against the caller's balance. An
// insufficient balance is a business outcome, returned as ok:false rather
// than an error status.
func UsageConsume(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload consumePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.Consume(ctx, userID, payload.Characters)
		if err != nil {
			var typed *pkgerrors.Error
			if errors.As(err, &typed) && typed.Code() == pkgerrors.CodeExhausted {
				responses.WriteSuccess(w, map[string]any{
					"ok":     false,
					"reason": typed.Message(),
				})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"ok":                   true,
			"characters_used":      row.CharactersUsed,
			"characters_remaining": row.CharactersRemaining,
		})
	}
}
