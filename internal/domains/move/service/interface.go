package service

import (
	"context"
	"io"

	"cardistry-catalog/internal/domains/move/model"
	sessionModel "cardistry-catalog/internal/domains/session/model"
	"cardistry-catalog/internal/infrastructure/storage"
)

// ProgressFunc receives upload percentages, monotonically increasing in
// [0,100]. It is called from the submitting goroutine.
type ProgressFunc func(percent int)

// Service authors new move records.
type Service interface {
	// Submit normalizes and validates form, uploads image when present, and
	// creates the record. identity is nil for anonymous submissions.
	//
	// Errors are *model.MoveError: ErrValidationFailure before any backend
	// call, ErrUploadFailure with no record created, or ErrWriteFailure.
	Submit(
		ctx context.Context,
		identity *sessionModel.Identity,
		form model.MoveForm,
		image *model.ImageUpload,
		progress ProgressFunc,
	) (*model.MoveRecord, error)
}

// AssetStore stores uploaded images and resolves their public address.
type AssetStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) *storage.UploadTask
}

// ImagePreparer checks an image and returns the bytes to store.
type ImagePreparer interface {
	Prepare(data []byte) ([]byte, string, error)
}

// Notifier announces that the collection changed.
type Notifier interface {
	Publish(ctx context.Context, id string) error
}
