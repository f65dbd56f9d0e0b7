package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/domains/move/model"
	"cardistry-catalog/pkg/cache"
)

const (
	uploadKeyPrefix = "upload:"
	uploadTTL       = 15 * time.Minute
)

// UploadTracker mirrors upload progress into the cache so clients can poll
// GET /uploads/:id while their submission is in flight.
type UploadTracker struct {
	cache cache.Cache
}

func NewUploadTracker(c cache.Cache) *UploadTracker {
	return &UploadTracker{cache: c}
}

// Sink returns a ProgressFunc that records percentages under id.
func (t *UploadTracker) Sink(ctx context.Context, id string) ProgressFunc {
	t.store(ctx, model.UploadProgress{ID: id})
	return func(percent int) {
		t.store(ctx, model.UploadProgress{ID: id, Percent: percent})
	}
}

// Complete records the outcome of the submission that owned id.
func (t *UploadTracker) Complete(ctx context.Context, id, url string, err error) {
	p := model.UploadProgress{ID: id, Done: true, URL: url}
	if err != nil {
		p.Error = err.Error()
	} else {
		p.Percent = 100
	}
	t.store(ctx, p)
}

// Get returns the last recorded progress for id.
func (t *UploadTracker) Get(ctx context.Context, id string) (*model.UploadProgress, bool, error) {
	var p model.UploadProgress
	found, err := t.cache.Get(ctx, uploadKeyPrefix+id, &p)
	if err != nil || !found {
		return nil, false, err
	}
	return &p, true, nil
}

func (t *UploadTracker) store(ctx context.Context, p model.UploadProgress) {
	if err := t.cache.Set(ctx, uploadKeyPrefix+p.ID, p, uploadTTL); err != nil {
		log.Warn().Err(err).Str("upload_id", p.ID).Msg("failed to record upload progress")
	}
}
