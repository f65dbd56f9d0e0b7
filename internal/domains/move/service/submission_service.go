package service

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/domains/move/model"
	"cardistry-catalog/internal/domains/move/repository"
	sessionModel "cardistry-catalog/internal/domains/session/model"
)

var whitespace = regexp.MustCompile(`\s`)

type submissionService struct {
	repo     repository.MoveRepository
	assets   AssetStore
	images   ImagePreparer
	notifier Notifier
	prefix   string
	now      func() time.Time
}

// NewSubmissionService builds the authoring flow. objectPrefix is prepended
// to every stored image key, e.g. "movements/".
func NewSubmissionService(
	repo repository.MoveRepository,
	assets AssetStore,
	images ImagePreparer,
	notifier Notifier,
	objectPrefix string,
) Service {
	return &submissionService{
		repo:     repo,
		assets:   assets,
		images:   images,
		notifier: notifier,
		prefix:   objectPrefix,
		now:      time.Now,
	}
}

func (s *submissionService) Submit(
	ctx context.Context,
	identity *sessionModel.Identity,
	form model.MoveForm,
	image *model.ImageUpload,
	progress ProgressFunc,
) (*model.MoveRecord, error) {
	// ========================================
	// STEP 1: VALIDATE + NORMALIZE
	// ========================================
	if err := form.Validate(); err != nil {
		return nil, model.NewValidationError(err)
	}

	defaultCreator := ""
	if identity != nil {
		defaultCreator = identity.DisplayName
	}
	rec := form.Normalize(defaultCreator)
	if identity != nil {
		rec.CreatedBy = &model.Author{
			UID:   identity.UID,
			Name:  identity.DisplayName,
			Email: identity.Email,
		}
	}

	// ========================================
	// STEP 2: UPLOAD IMAGE (record waits for the address)
	// ========================================
	if image != nil && len(image.Data) > 0 {
		data, contentType, err := s.images.Prepare(image.Data)
		if err != nil {
			return nil, model.NewFieldError("image", err)
		}

		key := s.objectKey(image.Filename)
		url, err := s.upload(ctx, key, data, contentType, progress)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("image upload failed, record not created")
			return nil, model.NewUploadError(err)
		}
		rec.ImageURL = url
	}

	// ========================================
	// STEP 3: CREATE RECORD
	// ========================================
	if err := s.repo.Create(ctx, &rec); err != nil {
		log.Error().Err(err).Str("name", rec.Name).Msg("failed to create movement")
		return nil, model.NewWriteError(err)
	}

	log.Info().
		Str("id", rec.ID.String()).
		Str("name", rec.Name).
		Bool("has_image", rec.ImageURL != "").
		Bool("anonymous", rec.CreatedBy == nil).
		Msg("movement created")

	// The record exists either way; listeners catch up on the next change.
	if err := s.notifier.Publish(ctx, rec.ID.String()); err != nil {
		log.Warn().Err(err).Str("id", rec.ID.String()).Msg("change notification failed")
	}

	return &rec, nil
}

func (s *submissionService) upload(
	ctx context.Context,
	key string,
	data []byte,
	contentType string,
	progress ProgressFunc,
) (string, error) {
	task := s.assets.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)

	for percent := range task.Progress() {
		if progress != nil {
			progress(percent)
		}
	}

	url, err := task.Wait()
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", errors.New("upload resolved without an address")
	}
	return url, nil
}

// objectKey is <prefix><unix millis>_<filename with whitespace replaced by _>.
func (s *submissionService) objectKey(filename string) string {
	if filename == "" {
		filename = "image"
	}
	millis := strconv.FormatInt(s.now().UnixMilli(), 10)
	return s.prefix + millis + "_" + whitespace.ReplaceAllString(filename, "_")
}
