package chatexport

import (
	"bytes"
	"context"
	"path"
	"strings"
)

type Extraction struct {
	Platform    Platform     `json:"platform"`
	Messages    []Message    `json:"messages"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Summary     Summary      `json:"summary"`
}

// Extract parses an uploaded file, which may be a zip archive or a plain
// export, and applies the filter.
func Extract(ctx context.Context, platform Platform, filename string, data []byte, filter Filter, opts ArchiveOptions) (*Extraction, error) {
	var (
		msgs []Message
		atts []Attachment
	)
	if isZip(filename, data) {
		a, err := ParseArchive(ctx, platform, bytes.NewReader(data), int64(len(data)), opts)
		if err != nil {
			return nil, err
		}
		msgs, atts = a.Messages, a.Attachments
	} else {
		var err error
		msgs, err = Parse(platform, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	}

	msgs = filter.Apply(msgs)
	return &Extraction{
		Platform:    platform,
		Messages:    msgs,
		Attachments: atts,
		Summary:     Summarize(msgs),
	}, nil
}

func isZip(filename string, data []byte) bool {
	return strings.EqualFold(path.Ext(filename), ".zip") || bytes.HasPrefix(data, []byte("PK\x03\x04"))
}
