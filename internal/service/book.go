package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tchatsouvenir/bookshop/internal/model"
)

type CreateBookRequest struct {
	Title           string           `json:"title"`
	Subtitle        string           `json:"subtitle"`
	Format          string           `json:"format"`
	CoverImageURL   string           `json:"cover_image_url"`
	Design          json.RawMessage  `json:"design"`
	Content         json.RawMessage  `json:"content"`
	FabricationCost *decimal.Decimal `json:"fabrication_cost"`
	SellingPrice    *decimal.Decimal `json:"selling_price"`
	DownloadPath    string           `json:"download_path"`
}

type BookUpdate struct {
	Title           *string          `json:"title"`
	Subtitle        *string          `json:"subtitle"`
	Status          *string          `json:"status"`
	Format          *string          `json:"format"`
	CoverImageURL   *string          `json:"cover_image_url"`
	Design          json.RawMessage  `json:"design"`
	Content         json.RawMessage  `json:"content"`
	FabricationCost *decimal.Decimal `json:"fabrication_cost"`
	SellingPrice    *decimal.Decimal `json:"selling_price"`
}

type BookService struct {
	tx            Transactor
	books         BookStore
	printers      PrinterStore
	printerOrders PrinterOrderStore
	catalog       Catalog
	now           func() time.Time
}

func NewBookService(tx Transactor, books BookStore, printers PrinterStore, printerOrders PrinterOrderStore, catalog Catalog) *BookService {
	return &BookService{
		tx:            tx,
		books:         books,
		printers:      printers,
		printerOrders: printerOrders,
		catalog:       catalog,
		now:           time.Now,
	}
}

func parseFormat(s string) (model.BookFormat, error) {
	if strings.TrimSpace(s) == "" {
		return model.FormatStandard, nil
	}
	f, ok := model.ParseBookFormat(s)
	if !ok {
		return "", fmt.Errorf("%w: unknown book format %q", model.ErrValidation, s)
	}
	return f, nil
}

func validJSON(raw json.RawMessage, field string) error {
	if len(raw) > 0 && !json.Valid(raw) {
		return fmt.Errorf("%w: %s is not valid JSON", model.ErrValidation, field)
	}
	return nil
}

// Create stores a draft book, pricing it from the catalog when the request
// leaves cost or price unset.
func (s *BookService) Create(ctx context.Context, userID string, req CreateBookRequest) (*model.Book, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrValidation)
	}
	format, err := parseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	if err := validJSON(req.Design, "design"); err != nil {
		return nil, err
	}
	if err := validJSON(req.Content, "content"); err != nil {
		return nil, err
	}

	b := &model.Book{
		ID:            newID(),
		UserID:        userID,
		Title:         strings.TrimSpace(req.Title),
		Subtitle:      strings.TrimSpace(req.Subtitle),
		Status:        model.BookStatusDraft,
		Format:        format,
		CoverImageURL: req.CoverImageURL,
		Design:        req.Design,
		Content:       req.Content,
		DownloadPath:  req.DownloadPath,
	}
	if req.FabricationCost != nil {
		b.FabricationCost = decimal.NewNullDecimal(*req.FabricationCost)
	} else if cost, ok := s.catalog.CostFor(format); ok {
		b.FabricationCost = decimal.NewNullDecimal(cost)
	}
	if req.SellingPrice != nil {
		b.SellingPrice = decimal.NewNullDecimal(*req.SellingPrice)
	} else if price, ok := s.catalog.PriceFor(format); ok {
		b.SellingPrice = decimal.NewNullDecimal(price)
	}

	if err := s.books.Insert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// load returns a book the caller may act on, deleted or not.
func (s *BookService) load(ctx context.Context, caller Caller, id string) (*model.Book, error) {
	b, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(b.UserID) {
		return nil, fmt.Errorf("%w: book belongs to another user", model.ErrForbidden)
	}
	return b, nil
}

func (s *BookService) Get(ctx context.Context, caller Caller, id string) (*model.Book, error) {
	b, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if b.IsDeleted() {
		return nil, fmt.Errorf("book %s: %w", id, model.ErrNotFound)
	}
	return b, nil
}

// List returns live books. Non-admin callers only see their own.
func (s *BookService) List(ctx context.Context, caller Caller, f model.BookFilter) ([]model.Book, error) {
	if !caller.Admin {
		f.UserID = caller.UserID
	}
	f.Deleted = false
	return s.books.List(ctx, f)
}

func (s *BookService) Deleted(ctx context.Context, caller Caller) ([]model.Book, error) {
	f := model.BookFilter{Deleted: true}
	if !caller.Admin {
		f.UserID = caller.UserID
	}
	return s.books.List(ctx, f)
}

func (s *BookService) Update(ctx context.Context, caller Caller, id string, in BookUpdate) (*model.Book, error) {
	b, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", model.ErrValidation)
		}
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Subtitle != nil {
		b.Subtitle = strings.TrimSpace(*in.Subtitle)
	}
	if in.Status != nil {
		st, ok := model.ParseBookStatus(*in.Status)
		if !ok || st == model.BookStatusDeleted {
			return nil, fmt.Errorf("%w: invalid book status %q", model.ErrValidation, *in.Status)
		}
		b.Status = st
		if st == model.BookStatusCompleted && b.ProcessedAt == nil {
			now := s.now()
			b.ProcessedAt = &now
		}
	}
	if in.Format != nil {
		f, err := parseFormat(*in.Format)
		if err != nil {
			return nil, err
		}
		b.Format = f
	}
	if in.CoverImageURL != nil {
		b.CoverImageURL = *in.CoverImageURL
	}
	if len(in.Design) > 0 {
		if err := validJSON(in.Design, "design"); err != nil {
			return nil, err
		}
		b.Design = in.Design
	}
	if len(in.Content) > 0 {
		if err := validJSON(in.Content, "content"); err != nil {
			return nil, err
		}
		b.Content = in.Content
	}
	if in.FabricationCost != nil {
		b.FabricationCost = decimal.NewNullDecimal(*in.FabricationCost)
	}
	if in.SellingPrice != nil {
		b.SellingPrice = decimal.NewNullDecimal(*in.SellingPrice)
	}

	if err := s.books.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookService) SoftDelete(ctx context.Context, caller Caller, id string) error {
	b, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	now := s.now()
	b.DeletedAt = &now
	b.Status = model.BookStatusDeleted
	return s.books.Update(ctx, b)
}

// Restore brings a soft-deleted book back as a draft.
func (s *BookService) Restore(ctx context.Context, caller Caller, id string) (*model.Book, error) {
	b, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !b.IsDeleted() {
		return nil, fmt.Errorf("%w: book %s is not deleted", model.ErrInvalidState, id)
	}
	b.DeletedAt = nil
	b.Status = model.BookStatusDraft
	if err := s.books.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookService) PermanentDelete(ctx context.Context, caller Caller, id string) error {
	if _, err := s.load(ctx, caller, id); err != nil {
		return err
	}
	return s.books.Delete(ctx, id)
}

// AssignPrinter hands a book to an active printer and opens a printer order
// priced at the printer's rate for the book format.
func (s *BookService) AssignPrinter(ctx context.Context, bookID, printerID string, orderID *string) (*model.PrinterOrder, error) {
	var po *model.PrinterOrder
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		b, err := s.books.Get(ctx, bookID)
		if err != nil {
			return err
		}
		if b.IsDeleted() {
			return fmt.Errorf("%w: book %s is deleted", model.ErrInvalidState, bookID)
		}
		p, err := s.printers.Get(ctx, printerID)
		if err != nil {
			return err
		}
		if !p.Active {
			return fmt.Errorf("%w: printer %s is inactive", model.ErrInvalidState, p.Name)
		}

		b.AssignedPrinterID = &p.ID
		b.Status = model.BookStatusAssignedToPrinter
		if err := s.books.Update(ctx, b); err != nil {
			return err
		}

		po = &model.PrinterOrder{
			ID:        newID(),
			PrinterID: p.ID,
			BookID:    b.ID,
			OrderID:   orderID,
			Cost:      p.CostFor(b.Format),
		}
		po.SetStatus(model.PrinterOrderAssigned, s.now())
		return s.printerOrders.Insert(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *BookService) MarkDownloaded(ctx context.Context, caller Caller, id, path string) (*model.Book, error) {
	b, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	b.IsDownloaded = true
	if path != "" {
		b.DownloadPath = path
	}
	if err := s.books.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookService) MarginStats(ctx context.Context, from, to *time.Time) (model.MarginStats, error) {
	books, err := s.books.List(ctx, model.BookFilter{})
	if err != nil {
		return model.MarginStats{}, err
	}
	return marginStats(books, from, to), nil
}

// marginStats totals margins over live books. PeriodMargin only covers books
// created within [from, to] and is set when either bound is.
func marginStats(books []model.Book, from, to *time.Time) model.MarginStats {
	stats := model.MarginStats{
		TotalMargin: decimal.Zero,
		ByStatus:    make(map[model.BookStatus]int),
	}
	period := decimal.Zero
	for i := range books {
		b := &books[i]
		if b.IsDeleted() {
			continue
		}
		stats.ActiveBooks++
		stats.ByStatus[b.Status]++
		m := b.Margin()
		stats.TotalMargin = stats.TotalMargin.Add(m)
		if (from == nil || !b.CreatedAt.Before(*from)) && (to == nil || !b.CreatedAt.After(*to)) {
			period = period.Add(m)
		}
	}
	if from != nil || to != nil {
		stats.PeriodMargin = &period
	}
	return stats
}
