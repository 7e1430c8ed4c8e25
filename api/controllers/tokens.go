package controllers

import (
	"net/http"
	"strings"

	"github.com/vocalize-ai/vocalize-backend/api/responses"
	"github.com/vocalize-ai/vocalize-backend/api/validators"
	"github.com/vocalize-ai/vocalize-backend/internal/ledger"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

// The token endpoints drive the demo subscription simulator. Ledger refusals
// are business outcomes and come back as 200 with ok:false; only storage
// failures use the error envelope.

type tokenConsumePayload struct {
	Email string `json:"email" validate:"required"`
}

type tokenCreatePayload struct {
	Email      string `json:"email" validate:"required"`
	Plan       string `json:"plan"`
	Tokens     int    `json:"tokens" validate:"gte=0"`
	StartDate  string `json:"start_date"`
	ExpiryDate string `json:"expiry_date"`
}

// TokensConsume burns one token for the given email.
func TokensConsume(l *ledger.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if l == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		var payload tokenConsumePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := l.Consume(ctx, payload.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ledger"))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TokensInfo returns the full record for an email.
func TokensInfo(l *ledger.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if l == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "email query parameter is required"))
			return
		}

		record, ok := l.Info(email)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription found"))
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// TokensEligibility answers whether the email may consume a token.
// ?evaluate=true selects the mutating evaluation, which also expires
// past-expiry records and persists the change.
func TokensEligibility(l *ledger.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if l == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "email query parameter is required"))
			return
		}

		if r.URL.Query().Get("evaluate") == "true" {
			result, err := l.EvaluateEligibility(ctx, email)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ledger"))
				return
			}
			responses.WriteSuccess(w, result)
			return
		}
		responses.WriteSuccess(w, l.Eligibility(email))
	}
}

// TokensCreate registers a runtime subscription record in the simulator.
func TokensCreate(l *ledger.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if l == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		var payload tokenCreatePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := l.Create(ctx, ledger.CreateRecordInput{
			Email:      payload.Email,
			Plan:       payload.Plan,
			Tokens:     payload.Tokens,
			StartDate:  payload.StartDate,
			ExpiryDate: payload.ExpiryDate,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "create subscription record"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}
