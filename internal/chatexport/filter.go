package chatexport

import (
	"strings"
	"time"
)

type Filter struct {
	From               *time.Time `json:"from,omitempty"`
	To                 *time.Time `json:"to,omitempty"`
	Participants       []string   `json:"participants,omitempty"`
	ExcludePhotos      bool       `json:"exclude_photos"`
	ExcludeVideos      bool       `json:"exclude_videos"`
	ExcludeVoice       bool       `json:"exclude_voice"`
	ExcludeAttachments bool       `json:"exclude_attachments"`
	StripEmojis        bool       `json:"strip_emojis"`
}

// Apply returns the messages kept by the filter. The input is not modified.
func (f Filter) Apply(msgs []Message) []Message {
	var allowed map[string]struct{}
	if len(f.Participants) > 0 {
		allowed = make(map[string]struct{}, len(f.Participants))
		for _, p := range f.Participants {
			allowed[p] = struct{}{}
		}
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if f.From != nil && m.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && m.Timestamp.After(*f.To) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[m.Sender]; !ok {
				continue
			}
		}
		if m.Type == TypeMedia && f.excludes(m.MediaType) {
			continue
		}
		if f.StripEmojis {
			m.Content = StripEmojis(m.Content)
		}
		out = append(out, m)
	}
	return out
}

func (f Filter) excludes(mt MediaType) bool {
	switch mt {
	case MediaPhoto:
		return f.ExcludePhotos
	case MediaVideo:
		return f.ExcludeVideos
	case MediaVoice:
		return f.ExcludeVoice
	case MediaAttachment, MediaDocument:
		return f.ExcludeAttachments
	}
	return false
}

// StripEmojis removes emoji runes. Lines and tabs are kept. On a line that
// lost an emoji, the spaces left behind are collapsed and trimmed.
func StripEmojis(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.IndexFunc(line, isEmoji) < 0 {
			continue
		}
		var (
			b    strings.Builder
			prev rune
		)
		b.Grow(len(line))
		for _, r := range line {
			if isEmoji(r) || (r == ' ' && prev == ' ') {
				continue
			}
			b.WriteRune(r)
			prev = r
		}
		lines[i] = strings.Trim(b.String(), " ")
	}
	return strings.Join(lines, "\n")
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF,
		r >= 0x2600 && r <= 0x27BF,
		r >= 0x2B00 && r <= 0x2BFF,
		r >= 0x2300 && r <= 0x23FF,
		r >= 0xE0020 && r <= 0xE007F,
		r == 0xFE0F, r == 0x200D, r == 0x20E3:
		return true
	}
	return false
}
