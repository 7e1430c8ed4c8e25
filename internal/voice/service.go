package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/internal/platform"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	pkgerrors "github.com/vocalize-ai/vocalize-backend/pkg/errors"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
	"gorm.io/gorm"
)

type synthesisEngine interface {
	Generate(ctx context.Context, bearerToken string, request platform.GenerateRequest) (*platform.GenerateResponse, error)
	CloneVoice(ctx context.Context, bearerToken, userID, fileName string, sample io.Reader) (*platform.CloneVoiceResponse, error)
}

type usageService interface {
	Consume(ctx context.Context, userID uuid.UUID, count int64) (*models.Usage, error)
	Refund(ctx context.Context, userID uuid.UUID, count int64) error
}

type audioRepository interface {
	Create(ctx context.Context, file *models.AudioFile) (*models.AudioFile, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AudioFile, error)
	CreateClone(ctx context.Context, clone *models.ClonedVoice) (*models.ClonedVoice, error)
	ListClonesByUser(ctx context.Context, userID uuid.UUID, search string) ([]models.ClonedVoice, error)
	FindCloneByID(ctx context.Context, id uuid.UUID) (*models.ClonedVoice, error)
	DeleteClone(ctx context.Context, id uuid.UUID) error
}

// GenerateInput is a single synthesis request.
type GenerateInput struct {
	Text           string
	Language       string
	VoiceModel     string
	SourceLanguage string
	TargetLanguage string
	BearerToken    string
}

// GenerateOutput describes the produced clip and the balance after charging.
type GenerateOutput struct {
	AudioID             uuid.UUID `json:"audio_id"`
	FilePath            string    `json:"file_path"`
	CharacterCount      int64     `json:"character_count"`
	CharactersRemaining int64     `json:"characters_remaining"`
}

// CloneInput is a voice sample upload.
type CloneInput struct {
	Name        string
	FileName    string
	Sample      io.Reader
	BearerToken string
}

// Service exposes generation, clip history, and the cloned-voice library.
type Service interface {
	Generate(ctx context.Context, userID uuid.UUID, input GenerateInput) (*GenerateOutput, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.AudioFile, error)
	Clone(ctx context.Context, userID uuid.UUID, input CloneInput) (*models.ClonedVoice, error)
	ListClones(ctx context.Context, userID uuid.UUID, search string) ([]models.ClonedVoice, error)
	DeleteClone(ctx context.Context, userID, cloneID uuid.UUID) error
}

type service struct {
	engine synthesisEngine
	usage  usageService
	repo   audioRepository
	logg   *logger.Logger
}

// ServiceParams collects the voice service dependencies.
type ServiceParams struct {
	Engine synthesisEngine
	Usage  usageService
	Repo   audioRepository
	Logger *logger.Logger
}

// NewService builds a voice service.
func NewService(params ServiceParams) (Service, error) {
	if params.Engine == nil {
		return nil, fmt.Errorf("synthesis engine required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage service required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("audio repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		engine: params.Engine,
		usage:  params.Usage,
		repo:   params.Repo,
		logg:   params.Logger,
	}, nil
}

// Generate charges the balance before calling the engine. The atomic deduct
// is the real quota check; a failed engine call refunds the charge.
func (s *service) Generate(ctx context.Context, userID uuid.UUID, input GenerateInput) (*GenerateOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "text is required")
	}
	if input.Language == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "language is required")
	}
	if input.VoiceModel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voice_model is required")
	}

	count := int64(utf8.RuneCountInString(text))

	balance, err := s.usage.Consume(ctx, userID, count)
	if err != nil {
		return nil, err
	}

	resp, err := s.engine.Generate(ctx, input.BearerToken, platform.GenerateRequest{
		Text:           text,
		Language:       input.Language,
		VoiceModel:     input.VoiceModel,
		SourceLanguage: input.SourceLanguage,
		TargetLanguage: input.TargetLanguage,
	})
	if err != nil {
		if refundErr := s.usage.Refund(ctx, userID, count); refundErr != nil {
			s.logg.Error(ctx, "refund after failed generation", refundErr)
		}
		return nil, err
	}

	file, err := s.repo.Create(ctx, &models.AudioFile{
		UserID:         userID,
		FilePath:       resp.FilePath,
		VoiceModel:     input.VoiceModel,
		Language:       input.Language,
		CharacterCount: count,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audio file")
	}

	return &GenerateOutput{
		AudioID:             file.ID,
		FilePath:            file.FilePath,
		CharacterCount:      count,
		CharactersRemaining: balance.CharactersRemaining,
	}, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.AudioFile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audio files")
	}
	return rows, nil
}

// Clone uploads a voice sample to the engine and records it in the caller's
// library. Generation requests use the assigned speaker id as their voice
// model.
func (s *service) Clone(ctx context.Context, userID uuid.UUID, input CloneInput) (*models.ClonedVoice, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voice_name is required")
	}
	if input.Sample == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voice_file is required")
	}

	resp, err := s.engine.CloneVoice(ctx, input.BearerToken, userID.String(), input.FileName, input.Sample)
	if err != nil {
		return nil, err
	}

	clone, err := s.repo.CreateClone(ctx, &models.ClonedVoice{
		UserID:    userID,
		Name:      name,
		SpeakerID: newSpeakerID(),
		FilePath:  resp.Path,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cloned voice")
	}
	return clone, nil
}

func (s *service) ListClones(ctx context.Context, userID uuid.UUID, search string) ([]models.ClonedVoice, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	rows, err := s.repo.ListClonesByUser(ctx, userID, strings.TrimSpace(search))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cloned voices")
	}
	return rows, nil
}

// DeleteClone removes a clone the caller owns. Another user's clone reads as
// not found rather than forbidden so ids leak nothing.
func (s *service) DeleteClone(ctx context.Context, userID, cloneID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if cloneID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "clone id is required")
	}

	clone, err := s.repo.FindCloneByID(ctx, cloneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cloned voice not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up cloned voice")
	}
	if clone.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cloned voice not found")
	}

	if err := s.repo.DeleteClone(ctx, cloneID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cloned voice")
	}
	return nil
}

// newSpeakerID mints a speaker handle in the engine's expected user-NNN-YYYY
// shape. The "user-" prefix is what routes generation to a cloned voice.
func newSpeakerID() string {
	return fmt.Sprintf("user-%03d-%d", 100+rand.Intn(900), time.Now().Year())
}
