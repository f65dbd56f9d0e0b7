package feed

import (
	"time"

	"cardistry-catalog/internal/domains/move/model"
)

const (
	placeholderName    = "Untitled"
	placeholderCreator = "Unknown"
	placeholderField   = "—"
	placeholderImage   = "No image"

	// EmptyMessage replaces the card list when nothing matches.
	EmptyMessage = "No moves match your filters yet."
)

// Card is a MoveRecord with display defaults applied.
type Card struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Creator     string    `json:"creator"`
	Year        string    `json:"year"`
	Difficulty  string    `json:"difficulty"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	ImageAlt    string    `json:"imageAlt,omitempty"`
	NoImage     string    `json:"noImage,omitempty"`
	Video       string    `json:"video,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FeedView is what every render adapter draws: either cards or the empty
// placeholder, never both.
type FeedView struct {
	Filter       Filter             `json:"filter"`
	Version      uint64             `json:"version"`
	Total        int                `json:"total"`
	Moves        []model.MoveRecord `json:"moves"`
	Cards        []Card             `json:"cards"`
	Empty        bool               `json:"empty"`
	EmptyMessage string             `json:"emptyMessage,omitempty"`
}

// BuildView applies f to snapshot and builds the render model.
func BuildView(snapshot []model.MoveRecord, f Filter, version uint64) FeedView {
	moves := Apply(snapshot, f)
	view := FeedView{
		Filter:  f,
		Version: version,
		Total:   len(snapshot),
		Moves:   moves,
		Cards:   make([]Card, 0, len(moves)),
	}
	for _, rec := range moves {
		view.Cards = append(view.Cards, NewCard(rec))
	}
	if len(moves) == 0 {
		view.Empty = true
		view.EmptyMessage = EmptyMessage
	}
	return view
}

func NewCard(rec model.MoveRecord) Card {
	card := Card{
		ID:          rec.ID.String(),
		Name:        orDefault(rec.Name, placeholderName),
		Creator:     orDefault(rec.Creator, placeholderCreator),
		Year:        orDefault(yearString(rec.Year), placeholderField),
		Difficulty:  orDefault(rec.Difficulty, placeholderField),
		Description: rec.Description,
		Tags:        rec.Tags,
		Video:       rec.Video,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.ImageURL != "" {
		card.ImageURL = rec.ImageURL
		card.ImageAlt = rec.Name
	} else {
		card.NoImage = placeholderImage
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}
	return card
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
