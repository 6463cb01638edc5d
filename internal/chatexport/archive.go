package chatexport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxArchiveSize int64 = 512 << 20

// Attachment is a media file found next to the conversation in an archive.
type Attachment struct {
	Name      string    `json:"name"`
	MediaType MediaType `json:"media_type"`
	MIME      string    `json:"mime,omitempty"`
	Size      int64     `json:"size"`
	URL       string    `json:"url,omitempty"`
}

type Archive struct {
	Messages    []Message    `json:"messages"`
	Attachments []Attachment `json:"attachments"`
	ChatFiles   []string     `json:"chat_files"`
}

// MediaSink stores an attachment and returns the URL it is reachable at.
type MediaSink func(ctx context.Context, name string, r io.Reader) (string, error)

type ArchiveOptions struct {
	MaxUncompressed int64
	Sink            MediaSink
}

// ParseArchive reads a zip export. Every conversation file of the platform
// is parsed concurrently and the results are merged chronologically.
func ParseArchive(ctx context.Context, platform Platform, r io.ReaderAt, size int64, opts ArchiveOptions) (*Archive, error) {
	if _, err := ParsePlatform(string(platform)); err != nil {
		return nil, err
	}
	limit := opts.MaxUncompressed
	if limit <= 0 {
		limit = DefaultMaxArchiveSize
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}

	var (
		chats []*zip.File
		media []*zip.File
		total uint64
	)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(path.Base(f.Name), ".") || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		total += f.UncompressedSize64
		if total > uint64(limit) {
			return nil, ErrArchiveTooLarge
		}
		switch {
		case isChatFile(platform, f.Name):
			chats = append(chats, f)
		case mediaTypeForFile(f.Name) != "":
			media = append(media, f)
		}
	}
	if len(chats) == 0 {
		return nil, ErrNoChatFile
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].Name < chats[j].Name })
	sort.Slice(media, func(i, j int) bool { return media[i].Name < media[j].Name })

	parts := make([][]Message, len(chats))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range chats {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := readEntry(f, limit)
			if err != nil {
				return err
			}
			msgs, err := Parse(platform, bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			parts[i] = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Archive{}
	for i, f := range chats {
		out.ChatFiles = append(out.ChatFiles, f.Name)
		out.Messages = append(out.Messages, parts[i]...)
	}

	for _, f := range media {
		att := Attachment{
			Name:      path.Base(f.Name),
			MediaType: mediaTypeForFile(f.Name),
			MIME:      mime.TypeByExtension(strings.ToLower(path.Ext(f.Name))),
			Size:      int64(f.UncompressedSize64),
		}
		if opts.Sink != nil {
			url, err := sinkEntry(ctx, opts.Sink, f, att.Name)
			if err != nil {
				return nil, fmt.Errorf("store %s: %w", att.Name, err)
			}
			att.URL = url
		}
		out.Attachments = append(out.Attachments, att)
	}

	finalize(platform, out.Messages)
	linkAttachments(out.Messages, out.Attachments)
	return out, nil
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, ErrArchiveTooLarge
	}
	return data, nil
}

func sinkEntry(ctx context.Context, sink MediaSink, f *zip.File, name string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return sink(ctx, name, rc)
}

// linkAttachments pairs media messages that carry no URL with the archive's
// files of the same media type, in order.
func linkAttachments(msgs []Message, atts []Attachment) {
	queues := make(map[MediaType][]Attachment)
	for _, a := range atts {
		if a.URL != "" {
			queues[a.MediaType] = append(queues[a.MediaType], a)
		}
	}
	for i := range msgs {
		m := &msgs[i]
		if m.Type != TypeMedia || m.MediaURL != "" {
			continue
		}
		q := queues[m.MediaType]
		if len(q) == 0 {
			continue
		}
		m.MediaURL = q[0].URL
		queues[m.MediaType] = q[1:]
	}
}

func isChatFile(platform Platform, name string) bool {
	base := strings.ToLower(path.Base(name))
	switch platform {
	case WhatsApp:
		return strings.HasSuffix(base, ".txt")
	case Messenger, Instagram:
		return strings.HasSuffix(base, ".json") && strings.HasPrefix(base, "message")
	}
	return false
}

func mediaTypeForFile(name string) MediaType {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".heic":
		return MediaPhoto
	case ".mp4", ".mov", ".3gp", ".webm":
		return MediaVideo
	case ".opus", ".ogg", ".m4a", ".mp3", ".aac", ".wav":
		return MediaVoice
	case ".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx":
		return MediaDocument
	}
	return ""
}
