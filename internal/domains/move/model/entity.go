package model

import (
	"time"

	"github.com/google/uuid"
)

// MoveRecord is one cardistry move entry in the movements collection.
// Records are immutable once created.
type MoveRecord struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Creator     string    `json:"creator"`
	Year        *int      `json:"year"`
	Difficulty  string    `json:"difficulty"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Video       string    `json:"video"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedBy   *Author   `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Author attributes a record to the identity that submitted it.
type Author struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
