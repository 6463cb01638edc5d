package bookgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"tchatsouvenir/bookshop/internal/chatexport"
	"tchatsouvenir/bookshop/internal/model"
)

const bookFile = "book.html"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,80}$`)

// Store keeps rendered books, design previews and extracted media on disk.
type Store struct {
	booksDir  string
	mediaDir  string
	publicURL string
}

func NewStore(booksDir, mediaDir, publicURL string) *Store {
	return &Store{
		booksDir:  booksDir,
		mediaDir:  mediaDir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *Store) DownloadURL(bookID string) string {
	return s.publicURL + "/v1/books/download/" + bookID
}

func (s *Store) MediaURL(bookID, name string) string {
	return s.publicURL + "/v1/media/" + bookID + "/" + name
}

// SaveBook renders into <booksDir>/<bookID>/book.html and returns the path.
func (s *Store) SaveBook(bookID string, render func(io.Writer) error) (string, error) {
	if err := checkID(bookID); err != nil {
		return "", err
	}
	return writeAtomic(filepath.Join(s.booksDir, bookID), bookFile, render)
}

func (s *Store) OpenBook(bookID string) (*os.File, error) {
	if err := checkID(bookID); err != nil {
		return nil, err
	}
	return openExisting(filepath.Join(s.booksDir, bookID, bookFile))
}

func (s *Store) SavePreview(designID string, render func(io.Writer) error) (string, error) {
	if err := checkID(designID); err != nil {
		return "", err
	}
	return writeAtomic(filepath.Join(s.booksDir, "previews"), designID+".html", render)
}

func (s *Store) OpenPreview(designID string) (*os.File, error) {
	if err := checkID(designID); err != nil {
		return nil, err
	}
	return openExisting(filepath.Join(s.booksDir, "previews", designID+".html"))
}

// SaveMedia copies an attachment under <mediaDir>/<bookID>/ and returns its URL.
func (s *Store) SaveMedia(bookID, name string, r io.Reader) (string, error) {
	if err := checkID(bookID); err != nil {
		return "", err
	}
	clean, err := SanitizeName(name)
	if err != nil {
		return "", err
	}

	_, err = writeAtomic(filepath.Join(s.mediaDir, bookID), clean, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	if err != nil {
		return "", err
	}
	return s.MediaURL(bookID, clean), nil
}

func (s *Store) OpenMedia(bookID, name string) (*os.File, error) {
	if err := checkID(bookID); err != nil {
		return nil, err
	}
	clean, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}
	return openExisting(filepath.Join(s.mediaDir, bookID, clean))
}

// MediaSink adapts SaveMedia for archive extraction.
func (s *Store) MediaSink(bookID string) chatexport.MediaSink {
	return func(ctx context.Context, name string, r io.Reader) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return s.SaveMedia(bookID, name, r)
	}
}

// SanitizeName reduces an archive entry name to a plain file name.
func SanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: invalid file name", model.ErrValidation)
	}
	return name, nil
}

func checkID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: invalid id %q", model.ErrValidation, id)
	}
	return nil
}

func openExisting(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, model.ErrNotFound
	}
	return f, err
}

func writeAtomic(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("rename %s: %w", dst, err)
	}
	return dst, nil
}
