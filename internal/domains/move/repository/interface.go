package repository

import (
	"context"

	"cardistry-catalog/internal/domains/move/model"
)

// MoveRepository is the movements document collection.
type MoveRepository interface {
	// Create inserts rec and fills in its ID and CreatedAt.
	Create(ctx context.Context, rec *model.MoveRecord) error

	// ListOrdered returns every record, newest first.
	ListOrdered(ctx context.Context) ([]model.MoveRecord, error)
}
