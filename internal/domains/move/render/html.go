package render

import (
	"embed"
	"html/template"
	"io"

	"cardistry-catalog/internal/domains/move/feed"
	sessionModel "cardistry-catalog/internal/domains/session/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// FeedTemplate is the template name passed to gin's c.HTML.
const FeedTemplate = "feed.html"

// Difficulties are the labels offered by the filter dropdown. Records may
// carry any label; the filter only offers these.
var Difficulties = []string{"Easy", "Medium", "Hard", "Expert"}

// Page is the data behind the HTML feed page.
type Page struct {
	View         feed.FeedView
	Identity     *sessionModel.Identity
	Difficulties []string
}

func NewPage(view feed.FeedView, identity *sessionModel.Identity) Page {
	return Page{View: view, Identity: identity, Difficulties: Difficulties}
}

// Templates parses the embedded page templates. Register the result with
// gin's Engine.SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

// WriteHTML renders page without going through gin.
func WriteHTML(w io.Writer, page Page) error {
	return Templates().ExecuteTemplate(w, FeedTemplate, page)
}
