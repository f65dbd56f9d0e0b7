package feed

import (
	"strconv"
	"strings"

	"cardistry-catalog/internal/domains/move/model"
)

// Filter holds the feed controls. The zero value matches everything.
type Filter struct {
	Query      string `json:"q"`
	Year       string `json:"year"`
	Difficulty string `json:"difficulty"`
}

// FilterFromRequest maps query parameters onto a Filter.
func FilterFromRequest(req model.ListMovesRequest) Filter {
	return Filter{Query: req.Query, Year: req.Year, Difficulty: req.Difficulty}
}

// IsZero reports whether f filters nothing out.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && strings.TrimSpace(f.Year) == "" && f.Difficulty == ""
}

// Apply returns the records matching every non-empty predicate of f, in
// snapshot order. records is never modified.
//
//   - Year: the trimmed filter must equal the decimal year; records without a
//     year (or with year 0) never match a non-empty year filter.
//   - Difficulty: exact label equality.
//   - Query: trimmed, case-insensitive substring of
//     "name creator year tag1 tag2 ...".
func Apply(records []model.MoveRecord, f Filter) []model.MoveRecord {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	year := strings.TrimSpace(f.Year)

	out := make([]model.MoveRecord, 0, len(records))
	for _, rec := range records {
		if year != "" && yearString(rec.Year) != year {
			continue
		}
		if f.Difficulty != "" && rec.Difficulty != f.Difficulty {
			continue
		}
		if query != "" && !strings.Contains(haystack(rec), query) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func haystack(rec model.MoveRecord) string {
	var b strings.Builder
	b.WriteString(rec.Name)
	b.WriteByte(' ')
	b.WriteString(rec.Creator)
	b.WriteByte(' ')
	b.WriteString(yearString(rec.Year))
	b.WriteByte(' ')
	b.WriteString(strings.Join(rec.Tags, " "))
	return strings.ToLower(b.String())
}

// yearString renders a year for display and matching. Zero counts as absent.
func yearString(y *int) string {
	if y == nil || *y == 0 {
		return ""
	}
	return strconv.Itoa(*y)
}
