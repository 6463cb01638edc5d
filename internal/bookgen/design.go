// Package bookgen renders chat conversations into printable HTML books
// and tracks asynchronous design jobs.
package bookgen

import (
	"regexp"

	"tchatsouvenir/bookshop/internal/chatexport"
	"tchatsouvenir/bookshop/internal/model"
)

const (
	DefaultTitle    = "Mon Livre Souvenir"
	DefaultSubtitle = "Conversations précieuses"
)

// Design holds the user's choices from the book designer.
type Design struct {
	CoverTitle    string               `json:"cover_title"`
	CoverSubtitle string               `json:"cover_subtitle"`
	CoverImage    string               `json:"cover_image"`
	CoverColor    string               `json:"cover_color"`
	FontStyle     string               `json:"font_style"`
	TextColor     string               `json:"text_color"`
	AccentColor   string               `json:"accent_color"`
	UseAIImages   bool                 `json:"use_ai_images"`
	PageLayout    string               `json:"page_layout"`
	Font          string               `json:"font,omitempty"`
	Format        model.BookFormat     `json:"format,omitempty"`
	Messages      []chatexport.Message `json:"messages"`
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// WithDefaults fills empty or unusable fields.
func (d Design) WithDefaults() Design {
	if d.CoverTitle == "" {
		d.CoverTitle = DefaultTitle
	}
	if d.CoverSubtitle == "" {
		d.CoverSubtitle = DefaultSubtitle
	}
	d.CoverColor = colorOr(d.CoverColor, "#667eea")
	d.TextColor = colorOr(d.TextColor, "#1f2937")
	d.AccentColor = colorOr(d.AccentColor, "#007AFF")
	if d.PageLayout == "" {
		d.PageLayout = "classic"
	}
	if f, ok := model.ParseBookFormat(string(d.Format)); ok {
		d.Format = f
	} else {
		d.Format = model.FormatStandard
	}
	return d
}

func colorOr(c, fallback string) string {
	if hexColor.MatchString(c) {
		return c
	}
	return fallback
}
