package service

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tchatsouvenir/bookshop/internal/model"
)

type Dashboard struct {
	Orders         model.OrderStats            `json:"orders"`
	Payments       map[model.PaymentStatus]int `json:"payments"`
	ActiveBooks    int                         `json:"active_books"`
	BooksByStatus  map[model.BookStatus]int    `json:"books_by_status"`
	TotalMargin    decimal.Decimal             `json:"total_margin"`
	ActivePrinters int                         `json:"active_printers"`
}

type StatsService struct {
	orders   OrderStore
	payments PaymentStore
	books    BookStore
	printers PrinterStore
}

func NewStatsService(orders OrderStore, payments PaymentStore, books BookStore, printers PrinterStore) *StatsService {
	return &StatsService{orders: orders, payments: payments, books: books, printers: printers}
}

// Dashboard gathers the admin overview, querying each store concurrently.
func (s *StatsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.orders.CountByStatus(ctx)
		if err != nil {
			return err
		}
		d.Orders = orderStats(counts)
		return nil
	})
	g.Go(func() error {
		counts, err := s.payments.CountByStatus(ctx)
		if err != nil {
			return err
		}
		d.Payments = counts
		return nil
	})
	g.Go(func() error {
		books, err := s.books.List(ctx, model.BookFilter{})
		if err != nil {
			return err
		}
		m := marginStats(books, nil, nil)
		d.ActiveBooks = m.ActiveBooks
		d.BooksByStatus = m.ByStatus
		d.TotalMargin = m.TotalMargin
		return nil
	})
	g.Go(func() error {
		printers, err := s.printers.List(ctx, true)
		if err != nil {
			return err
		}
		d.ActivePrinters = len(printers)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
