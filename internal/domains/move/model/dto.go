package model

import (
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const unknownCreator = "Unknown"

// MoveForm is the raw submission form. Every field arrives as text.
type MoveForm struct {
	Name        string `form:"name" json:"name"`
	Creator     string `form:"creator" json:"creator"`
	Year        string `form:"year" json:"year"`
	Difficulty  string `form:"difficulty" json:"difficulty"`
	Description string `form:"description" json:"description"`
	Tags        string `form:"tags" json:"tags"`
	Video       string `form:"video" json:"video"`
}

// Validate requires a name; the rest of the form is free text.
func (f MoveForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.By(requiredTrimmed("name is required")),
			validation.Length(0, 200),
		),
	)
}

func requiredTrimmed(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return validation.NewError("validation_required", msg)
		}
		return nil
	}
}

// Normalize turns the form into the record fields it describes. defaultCreator
// fills an empty creator; when it is also empty the creator is "Unknown".
func (f MoveForm) Normalize(defaultCreator string) MoveRecord {
	creator := strings.TrimSpace(f.Creator)
	if creator == "" {
		creator = strings.TrimSpace(defaultCreator)
	}
	if creator == "" {
		creator = unknownCreator
	}

	return MoveRecord{
		Name:        strings.TrimSpace(f.Name),
		Creator:     creator,
		Year:        ParseYear(f.Year),
		Difficulty:  strings.TrimSpace(f.Difficulty),
		Description: strings.TrimSpace(f.Description),
		Tags:        SplitTags(f.Tags),
		Video:       strings.TrimSpace(f.Video),
	}
}

// ParseYear returns nil for empty, zero or non-numeric input, and for numbers
// the INTEGER year column cannot hold.
func ParseYear(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	y, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || y == 0 {
		return nil
	}
	year := int(y)
	return &year
}

// SplitTags splits on commas, trims, and drops empty entries.
// Order and duplicates are kept.
func SplitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ImageUpload is an attached image file.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// UploadProgress is what GET /uploads/:id reports.
type UploadProgress struct {
	ID      string `json:"id"`
	Percent int    `json:"percent"`
	Done    bool   `json:"done"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ListMovesRequest carries the feed filter from query parameters.
type ListMovesRequest struct {
	Query      string `form:"q"`
	Year       string `form:"year"`
	Difficulty string `form:"difficulty"`
}
