package bookgen

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"tchatsouvenir/bookshop/internal/chatexport"
	"tchatsouvenir/bookshop/internal/model"
)

type GenerateResult struct {
	BookID       string           `json:"book_id"`
	Status       string           `json:"status"`
	Format       model.BookFormat `json:"format"`
	MessageCount int              `json:"message_count"`
	Path         string           `json:"path"`
	DownloadURL  string           `json:"download_url"`
}

type Generator struct {
	store      *Store
	maxArchive int64
}

func NewGenerator(store *Store, maxArchive int64) *Generator {
	return &Generator{store: store, maxArchive: maxArchive}
}

// NewBookID returns an id of the form book_<unix millis>_<8 hex>.
func NewBookID() string {
	return fmt.Sprintf("book_%d_%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// GenerateFromArchive extracts a WhatsApp zip, stores its media next to the
// book and writes the rendered HTML.
func (g *Generator) GenerateFromArchive(ctx context.Context, bookID string, r io.ReaderAt, size int64, d Design) (*GenerateResult, error) {
	archive, err := chatexport.ParseArchive(ctx, chatexport.WhatsApp, r, size, chatexport.ArchiveOptions{
		MaxUncompressed: g.maxArchive,
		Sink:            g.store.MediaSink(bookID),
	})
	if err != nil {
		return nil, err
	}

	d = d.WithDefaults()
	path, err := g.store.SaveBook(bookID, func(w io.Writer) error {
		return Render(w, d, archive.Messages)
	})
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		BookID:       bookID,
		Status:       "completed",
		Format:       d.Format,
		MessageCount: len(archive.Messages),
		Path:         path,
		DownloadURL:  g.store.DownloadURL(bookID),
	}, nil
}
