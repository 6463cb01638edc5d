package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"tchatsouvenir/bookshop/internal/model"
)

const bookColumns = `id, user_id, title, subtitle, status, format, cover_image_url, design, content,
	fabrication_cost, selling_price, created_at, updated_at, deleted_at, processed_at,
	assigned_printer_id, download_path, is_downloaded`

type BookRepository struct {
	db *DB
}

func NewBookRepository(db *DB) *BookRepository {
	return &BookRepository{db: db}
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.UserID, &b.Title, &b.Subtitle, &b.Status, &b.Format, &b.CoverImageURL, &b.Design, &b.Content,
		&b.FabricationCost, &b.SellingPrice, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt, &b.ProcessedAt,
		&b.AssignedPrinterID, &b.DownloadPath, &b.IsDownloaded)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepository) Insert(ctx context.Context, b *model.Book) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		INSERT INTO books (id, user_id, title, subtitle, status, format, cover_image_url, design, content,
			fabrication_cost, selling_price, download_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		b.ID, b.UserID, b.Title, b.Subtitle, b.Status, b.Format, b.CoverImageURL, jsonOrNil(b.Design), jsonOrNil(b.Content),
		b.FabricationCost, b.SellingPrice, b.DownloadPath,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return wrapErr(err, "insert book")
}

// Get returns the book whether or not it is soft-deleted.
func (r *BookRepository) Get(ctx context.Context, id string) (*model.Book, error) {
	b, err := scanBook(r.db.executor(ctx).QueryRow(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1", id))
	return b, wrapErr(err, "get book")
}

func (r *BookRepository) List(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Deleted {
		where = append(where, "deleted_at IS NOT NULL")
	} else {
		where = append(where, "deleted_at IS NULL")
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Format != "" {
		add("format = $%d", f.Format)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	query := "SELECT " + bookColumns + " FROM books WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	rows, err := r.db.executor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err, "list books")
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, wrapErr(err, "scan book")
		}
		books = append(books, *b)
	}
	return books, wrapErr(rows.Err(), "list books")
}

func (r *BookRepository) Update(ctx context.Context, b *model.Book) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		UPDATE books SET title = $2, subtitle = $3, status = $4, format = $5, cover_image_url = $6, design = $7,
			content = $8, fabrication_cost = $9, selling_price = $10, deleted_at = $11, processed_at = $12,
			assigned_printer_id = $13, download_path = $14, is_downloaded = $15, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.Title, b.Subtitle, b.Status, b.Format, b.CoverImageURL, jsonOrNil(b.Design),
		jsonOrNil(b.Content), b.FabricationCost, b.SellingPrice, b.DeletedAt, b.ProcessedAt,
		b.AssignedPrinterID, b.DownloadPath, b.IsDownloaded,
	).Scan(&b.UpdatedAt)
	return wrapErr(err, "update book")
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.executor(ctx).Exec(ctx, "DELETE FROM books WHERE id = $1", id)
	return mustAffect(tag, err, "delete book")
}

func jsonOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
