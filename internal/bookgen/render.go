package bookgen

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"tchatsouvenir/bookshop/internal/chatexport"
	"tchatsouvenir/bookshop/internal/model"
)

//go:embed templates/book.html.tmpl
var templateFS embed.FS

var bookTemplate = template.Must(template.ParseFS(templateFS, "templates/book.html.tmpl"))

var fontFamilies = map[string]string{
	"serif":     "Georgia, 'Times New Roman', serif",
	"monospace": "'Courier New', monospace",
	"cursive":   "'Brush Script MT', cursive",
}

const defaultFontFamily = "-apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif"

type bubble struct {
	Class       string
	Own         bool
	Sender      string
	Time        string
	Text        string
	ImageURL    string
	VideoURL    string
	Placeholder string
}

type day struct {
	Label   string
	Bubbles []bubble
}

type page struct {
	Title       string
	Subtitle    string
	Format      model.BookFormat
	CoverImage  string
	FontFamily  template.CSS
	CoverColor  template.CSS
	TextColor   template.CSS
	AccentColor template.CSS
	Days        []day
}

// Render writes a self-contained HTML book. Messages are expected in
// chronological order; a date separator opens every new day.
func Render(w io.Writer, d Design, msgs []chatexport.Message) error {
	d = d.WithDefaults()

	family := defaultFontFamily
	if f, ok := fontFamilies[d.FontStyle]; ok {
		family = f
	}

	p := page{
		Title:      d.CoverTitle,
		Subtitle:   d.CoverSubtitle,
		Format:     d.Format,
		CoverImage: d.CoverImage,
		// colors are validated by WithDefaults
		FontFamily:  template.CSS(family),
		CoverColor:  template.CSS(d.CoverColor),
		TextColor:   template.CSS(d.TextColor),
		AccentColor: template.CSS(d.AccentColor),
	}

	current := ""
	for _, m := range msgs {
		label := m.Timestamp.Format("02/01/2006")
		if label != current || len(p.Days) == 0 {
			current = label
			p.Days = append(p.Days, day{Label: label})
		}
		last := &p.Days[len(p.Days)-1]
		last.Bubbles = append(last.Bubbles, toBubble(m))
	}

	if err := bookTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("render book: %w", err)
	}
	return nil
}

func toBubble(m chatexport.Message) bubble {
	b := bubble{
		Class:  "message-received",
		Own:    m.IsOwner,
		Sender: m.Sender,
		Time:   m.Timestamp.Format("15:04"),
		Text:   m.Content,
	}
	if m.IsOwner {
		b.Class = "message-sent"
	}
	if m.Type != chatexport.TypeMedia {
		return b
	}

	switch {
	case m.MediaType == chatexport.MediaPhoto && m.MediaURL != "":
		b.ImageURL = m.MediaURL
	case m.MediaType == chatexport.MediaVideo && m.MediaURL != "":
		b.VideoURL = m.MediaURL
	default:
		b.Placeholder = placeholders[m.MediaType]
	}
	return b
}

var placeholders = map[chatexport.MediaType]string{
	chatexport.MediaPhoto:      "📷 Photo",
	chatexport.MediaVideo:      "🎥 Vidéo",
	chatexport.MediaVoice:      "🎤 Note vocale",
	chatexport.MediaDocument:   "📄 Document",
	chatexport.MediaAttachment: "📎 Pièce jointe",
}
