package service

import (
	"context"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"tantalus-boxing/internal/apperr"
	"tantalus-boxing/internal/audit"
	"tantalus-boxing/internal/auth"
	"tantalus-boxing/internal/constants"
	"tantalus-boxing/internal/domain"
	"tantalus-boxing/internal/ratelimit"
	"tantalus-boxing/internal/repository"
	"tantalus-boxing/internal/validation"
)

// ObjectStore receives uploaded media bytes.
type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader, size int64) (string, error)
}

type MediaService struct {
	gate      *Gate
	validator *validation.Validator
	fighters  *repository.FighterRepository
	media     *repository.MediaRepository
	store     ObjectStore
	logger    zerolog.Logger
}

func NewMediaService(
	gate *Gate,
	validator *validation.Validator,
	fighters *repository.FighterRepository,
	media *repository.MediaRepository,
	store ObjectStore,
	logger zerolog.Logger,
) *MediaService {
	return &MediaService{gate: gate, validator: validator, fighters: fighters, media: media, store: store, logger: logger}
}

var uploadMediaOp = Operation{Name: "upload_media_asset", Class: ratelimit.ClassUpload, Timeout: constants.ObjectStoreTimeout}

// Upload checks the file, streams it to the object store and records it as
// pending moderation. Size and type are rejected before any bytes leave.
func (s *MediaService) Upload(ctx context.Context, form validation.Form, file *validation.FileInput) Result {
	return run(ctx, s.gate, uploadMediaOp,
		func() (validation.MediaInput, error) { return s.validator.Media(form, file) },
		func(ctx context.Context, caller auth.Identity, in validation.MediaInput) (Outcome, error) {
			profile, err := callerFighter(ctx, s.fighters, caller.UserID)
			if err != nil {
				return Outcome{}, err
			}

			id, err := s.media.NewID()
			if err != nil {
				return Outcome{}, err
			}
			path := profile.ID + "/" + id
			if mt := mimetype.Lookup(in.MimeType); mt != nil {
				path += mt.Extension()
			}

			body, err := in.File.Open()
			if err != nil {
				return Outcome{}, apperr.Wrap(apperr.CodeUnexpected, "The file could not be read", err)
			}
			defer body.Close()

			url, err := s.store.Upload(ctx, path, in.MimeType, body, in.File.Size)
			if err != nil {
				var e *apperr.Error
				if errors.As(err, &e) {
					return Outcome{}, e
				}
				return Outcome{}, apperr.Wrap(apperr.CodePersistenceFailure, "The file could not be stored, please try again", err)
			}

			asset := &domain.MediaAsset{
				ID:          id,
				FighterID:   profile.ID,
				Title:       in.Title,
				Description: in.Description,
				URL:         url,
				MimeType:    in.MimeType,
				SizeBytes:   in.File.Size,
				Status:      domain.MediaPending,
				CreatedAt:   s.gate.Now(),
			}
			if err := s.media.Create(ctx, asset); err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("media stored but not recorded")
				return Outcome{}, err
			}
			return Outcome{
				Message: "Media uploaded and awaiting review",
				Data:    asset,
				Audit: map[string]any{
					"fighter_id": profile.ID,
					"media_id":   asset.ID,
					"mime_type":  asset.MimeType,
					"size_bytes": asset.SizeBytes,
				},
			}, nil
		})
}

var moderateMediaOp = Operation{Name: "moderate_media", Class: ratelimit.ClassAdmin, Admin: true, Level: audit.LevelSecurity}

func (s *MediaService) Moderate(ctx context.Context, form validation.Form) Result {
	return run(ctx, s.gate, moderateMediaOp,
		func() (validation.ModerationInput, error) { return s.validator.Moderation(form) },
		func(ctx context.Context, caller auth.Identity, in validation.ModerationInput) (Outcome, error) {
			err := s.media.Moderate(ctx, in.MediaID, in.Status)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return Outcome{}, apperr.Wrap(apperr.CodeNotFound, "Media asset not found", err)
			case errors.Is(err, repository.ErrStale):
				return Outcome{}, apperr.Wrap(apperr.CodeConflict, "This media asset has already been reviewed", err)
			case err != nil:
				return Outcome{}, err
			}
			return Outcome{
				Message: "Media asset " + string(in.Status),
				Audit:   map[string]any{"media_id": in.MediaID, "status": string(in.Status)},
			}, nil
		})
}
