package chatexport

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type messengerMedia struct {
	URI string `json:"uri"`
}

type messengerMessage struct {
	SenderName  string           `json:"sender_name"`
	Content     string           `json:"content"`
	TimestampMs int64            `json:"timestamp_ms"`
	Photos      []messengerMedia `json:"photos"`
	Videos      []messengerMedia `json:"videos"`
	AudioFiles  []messengerMedia `json:"audio_files"`
	Files       []messengerMedia `json:"files"`
}

type messengerExport struct {
	Messages *[]messengerMessage `json:"messages"`
}

func parseMessenger(r io.Reader) ([]Message, error) {
	var export messengerExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}
	if export.Messages == nil {
		return nil, fmt.Errorf("%w: missing messages", ErrMalformedExport)
	}

	msgs := make([]Message, 0, len(*export.Messages))
	for _, raw := range *export.Messages {
		m := Message{
			Sender:    fixMojibake(raw.SenderName),
			Content:   fixMojibake(raw.Content),
			Timestamp: time.UnixMilli(raw.TimestampMs).UTC(),
			Type:      TypeText,
		}
		switch {
		case len(raw.Photos) > 0:
			m.Type, m.MediaType, m.MediaURL = TypeMedia, MediaPhoto, raw.Photos[0].URI
		case len(raw.Videos) > 0:
			m.Type, m.MediaType, m.MediaURL = TypeMedia, MediaVideo, raw.Videos[0].URI
		case len(raw.AudioFiles) > 0:
			m.Type, m.MediaType, m.MediaURL = TypeMedia, MediaVoice, raw.AudioFiles[0].URI
		case len(raw.Files) > 0:
			m.Type, m.MediaType, m.MediaURL = TypeMedia, MediaAttachment, raw.Files[0].URI
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

type instagramMessage struct {
	Sender      string          `json:"sender"`
	SenderName  string          `json:"sender_name"`
	Text        string          `json:"text"`
	Content     string          `json:"content"`
	Timestamp   json.RawMessage `json:"timestamp"`
	TimestampMs int64           `json:"timestamp_ms"`
	MediaType   string          `json:"media_type"`
	MediaURL    string          `json:"media_url"`
}

type instagramExport struct {
	Messages *[]instagramMessage `json:"messages"`
}

func parseInstagram(r io.Reader) ([]Message, error) {
	var export instagramExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}
	if export.Messages == nil {
		return nil, fmt.Errorf("%w: missing messages", ErrMalformedExport)
	}

	msgs := make([]Message, 0, len(*export.Messages))
	for _, raw := range *export.Messages {
		ts, err := instagramTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
		}
		m := Message{
			Sender:    firstNonEmpty(raw.Sender, raw.SenderName),
			Content:   firstNonEmpty(raw.Text, raw.Content),
			Timestamp: ts,
			Type:      TypeText,
		}
		if raw.MediaType != "" {
			m.Type = TypeMedia
			m.MediaType = normalizeMediaType(raw.MediaType)
			m.MediaURL = raw.MediaURL
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func instagramTime(raw instagramMessage) (time.Time, error) {
	if len(raw.Timestamp) == 0 || string(raw.Timestamp) == "null" {
		return time.UnixMilli(raw.TimestampMs).UTC(), nil
	}

	var n int64
	if err := json.Unmarshal(raw.Timestamp, &n); err == nil {
		return time.UnixMilli(n).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(raw.Timestamp, &s); err != nil {
		return time.Time{}, fmt.Errorf("timestamp %s", raw.Timestamp)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(n).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("timestamp %q", s)
}

func normalizeMediaType(s string) MediaType {
	switch strings.ToLower(s) {
	case "photo", "image", "picture":
		return MediaPhoto
	case "video", "reel":
		return MediaVideo
	case "voice", "audio":
		return MediaVoice
	case "document", "file":
		return MediaDocument
	}
	return MediaAttachment
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// fixMojibake repairs strings that Facebook writes as UTF-8 bytes escaped
// one code point per byte.
func fixMojibake(s string) string {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return s
		}
		buf = append(buf, byte(r))
	}
	if !utf8.Valid(buf) {
		return s
	}
	return string(buf)
}
