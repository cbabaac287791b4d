// Package web serves the server-rendered song pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tendant/songbook/pkg/songbook"
)

//go:embed templates/*.html
var templateFS embed.FS

const previewLength = 200

var funcs = template.FuncMap{
	"date":    formatDate,
	"preview": preview,
}

func formatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// preview shortens lyrics for the list cards
func preview(lyrics string) string {
	lyrics = strings.TrimSpace(lyrics)
	if utf8.RuneCountInString(lyrics) <= previewLength {
		return lyrics
	}
	runes := []rune(lyrics)
	return strings.TrimSpace(string(runes[:previewLength])) + "…"
}

func parseTemplates() (map[string]*template.Template, error) {
	pages := []string{"list", "detail", "form", "error"}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		templates[page] = t
	}
	return templates, nil
}

type layoutData struct {
	Title   string
	OGImage string
	IsAdmin bool
}

type listPage struct {
	layoutData
	Songs []*songbook.Song
	Error string
}

type detailPage struct {
	layoutData
	Song     *songbook.Song
	Tabs     *MediaTabs
	AudioURL string
	VideoURL string
	ImageURL string
	Lyrics   template.HTML
}

type formField struct {
	Kind   string
	Label  string
	Key    string
	Accept string
	Hint   string
}

type formPage struct {
	layoutData
	Song   *songbook.Song
	Action string
	Fields []formField
	Error  string
}

type errorPage struct {
	layoutData
	Message string
}
