package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/api/middleware"
	"github.com/vocalize-ai/vocalize-backend/api/responses"
	"github.com/vocalize-ai/vocalize-backend/api/validators"
	"github.com/vocalize-ai/vocalize-backend/internal/voice"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
)

type generatePayload struct {
	Text           string `json:"text" validate:"required"`
	Language       string `json:"language" validate:"required"`
	VoiceModel     string `json:"voice_model" validate:"required"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// VoiceGenerate runs a quota-charged synthesis request. Quota refusals come
// back as 200 with allowed:false; engine and storage failures use the error
// envelope.
func VoiceGenerate(svc voice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voice service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload generatePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out, err := svc.Generate(ctx, userID, voice.GenerateInput{
			Text:           payload.Text,
			Language:       payload.Language,
			VoiceModel:     payload.VoiceModel,
			SourceLanguage: payload.SourceLanguage,
			TargetLanguage: payload.TargetLanguage,
			BearerToken:    middleware.BearerTokenFromContext(ctx),
		})
		if err != nil {
			var typed *pkgerrors.Error
			if errors.As(err, &typed) && typed.Code() == pkgerrors.CodeExhausted {
				responses.WriteSuccess(w, map[string]any{
					"allowed": false,
					"reason":  typed.Message(),
				})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"allowed": true,
			"result":  out,
		})
	}
}

// maxVoiceSampleBytes caps an uploaded sample at 20 MiB.
const maxVoiceSampleBytes = 20 << 20

// VoiceCloneCreate accepts a multipart voice sample (voice_file) with a
// display name (voice_name) and registers it in the caller's library.
func VoiceCloneCreate(svc voice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voice service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxVoiceSampleBytes)
		if err := r.ParseMultipartForm(maxVoiceSampleBytes); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		sample, header, err := r.FormFile("voice_file")
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "voice_file is required"))
			return
		}
		defer sample.Close()

		clone, err := svc.Clone(ctx, userID, voice.CloneInput{
			Name:        r.FormValue("voice_name"),
			FileName:    header.Filename,
			Sample:      sample,
			BearerToken: middleware.BearerTokenFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, clone)
	}
}

// VoiceCloneList returns the caller's cloned voices, optionally filtered by
// a name search.
func VoiceCloneList(svc voice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voice service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.ListClones(ctx, userID, r.URL.Query().Get("search"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"voices": rows})
	}
}

// VoiceCloneDelete removes one of the caller's cloned voices.
func VoiceCloneDelete(svc voice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voice service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cloneID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid clone id"))
			return
		}

		if err := svc.DeleteClone(ctx, userID, cloneID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": cloneID})
	}
}

// VoiceHistory lists the caller's generated clips.
func VoiceHistory(svc voice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voice service unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.History(ctx, userID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"audio_files": rows})
	}
}
