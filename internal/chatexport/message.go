// Package chatexport turns exported chat archives (WhatsApp text exports,
// Messenger and Instagram JSON downloads) into a normalized message list.
package chatexport

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

type Platform string

const (
	WhatsApp  Platform = "whatsapp"
	Messenger Platform = "messenger"
	Instagram Platform = "instagram"
)

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeMedia MessageType = "media"
)

type MediaType string

const (
	MediaPhoto      MediaType = "photo"
	MediaVideo      MediaType = "video"
	MediaVoice      MediaType = "voice"
	MediaAttachment MediaType = "attachment"
	MediaDocument   MediaType = "document"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrMalformedExport     = errors.New("malformed export")
	ErrNoChatFile          = errors.New("no conversation file found in archive")
	ErrArchiveTooLarge     = errors.New("archive exceeds size limit")
)

type Message struct {
	ID        string      `json:"id"`
	Sender    string      `json:"sender"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Platform  Platform    `json:"platform"`
	Type      MessageType `json:"type"`
	MediaType MediaType   `json:"media_type,omitempty"`
	MediaURL  string      `json:"media_url,omitempty"`
	IsOwner   bool        `json:"is_owner"`
}

func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case WhatsApp, Messenger, Instagram:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
}

// Parse reads a single (non-archive) export for the given platform.
// The result is chronological, carries sequential ids and has the owner marked.
func Parse(platform Platform, r io.Reader) ([]Message, error) {
	var (
		msgs []Message
		err  error
	)
	switch platform {
	case WhatsApp:
		msgs, err = parseWhatsApp(r)
	case Messenger:
		msgs, err = parseMessenger(r)
	case Instagram:
		msgs, err = parseInstagram(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
	if err != nil {
		return nil, err
	}
	finalize(platform, msgs)
	return msgs, nil
}

func finalize(platform Platform, msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	for i := range msgs {
		msgs[i].ID = fmt.Sprintf("%s-%d", platform, i)
		msgs[i].Platform = platform
	}
	MarkOwner(msgs)
}

// MarkOwner flags the messages of the most frequent sender as the owner's.
// Ties go to whoever spoke first.
func MarkOwner(msgs []Message) {
	counts := make(map[string]int)
	var order []string
	for _, m := range msgs {
		if _, seen := counts[m.Sender]; !seen {
			order = append(order, m.Sender)
		}
		counts[m.Sender]++
	}

	owner, best := "", 0
	for _, sender := range order {
		if counts[sender] > best {
			owner, best = sender, counts[sender]
		}
	}
	for i := range msgs {
		msgs[i].IsOwner = best > 0 && msgs[i].Sender == owner
	}
}
