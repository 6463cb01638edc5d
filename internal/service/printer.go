package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tchatsouvenir/bookshop/internal/model"
)

type PrinterUpdate struct {
	Name         *string          `json:"name"`
	Email        *string          `json:"email"`
	Phone        *string          `json:"phone"`
	Address      *string          `json:"address"`
	StandardCost *decimal.Decimal `json:"standard_cost"`
	MediumCost   *decimal.Decimal `json:"medium_cost"`
	PremiumCost  *decimal.Decimal `json:"premium_cost"`
	Active       *bool            `json:"active"`
}

type PrinterService struct {
	printers PrinterStore
	orders   PrinterOrderStore
}

func NewPrinterService(printers PrinterStore, orders PrinterOrderStore) *PrinterService {
	return &PrinterService{printers: printers, orders: orders}
}

func (s *PrinterService) List(ctx context.Context, activeOnly bool) ([]model.Printer, error) {
	return s.printers.List(ctx, activeOnly)
}

func (s *PrinterService) Get(ctx context.Context, id string) (*model.Printer, error) {
	return s.printers.Get(ctx, id)
}

func (s *PrinterService) Create(ctx context.Context, p model.Printer) (*model.Printer, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	email, err := normalizeEmail(p.Email)
	if err != nil {
		return nil, err
	}
	p.Email = email
	if err := checkCosts(p.StandardCost, p.MediumCost, p.PremiumCost); err != nil {
		return nil, err
	}

	p.ID = newID()
	p.Active = true
	p.ApplyDefaultCosts()
	if err := s.printers.Insert(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func checkCosts(costs ...decimal.Decimal) error {
	for _, c := range costs {
		if c.IsNegative() {
			return fmt.Errorf("%w: costs cannot be negative", model.ErrValidation)
		}
	}
	return nil
}

func (s *PrinterService) Update(ctx context.Context, id string, in PrinterUpdate) (*model.Printer, error) {
	p, err := s.printers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		p.Email = email
	}
	if in.Phone != nil {
		p.Phone = *in.Phone
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	for _, c := range []struct {
		in  *decimal.Decimal
		out *decimal.Decimal
	}{
		{in.StandardCost, &p.StandardCost},
		{in.MediumCost, &p.MediumCost},
		{in.PremiumCost, &p.PremiumCost},
	} {
		if c.in == nil {
			continue
		}
		if err := checkCosts(*c.in); err != nil {
			return nil, err
		}
		*c.out = *c.in
	}
	if in.Active != nil {
		p.Active = *in.Active
	}

	if err := s.printers.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete deactivates the printer. Its order history is kept.
func (s *PrinterService) Delete(ctx context.Context, id string) error {
	p, err := s.printers.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Active = false
	return s.printers.Update(ctx, p)
}

func (s *PrinterService) Orders(ctx context.Context, printerID string, from, to *time.Time) ([]model.PrinterOrder, error) {
	if _, err := s.printers.Get(ctx, printerID); err != nil {
		return nil, err
	}
	return s.orders.ListByPrinter(ctx, printerID, from, to)
}

func (s *PrinterService) TotalCost(ctx context.Context, printerID string, from, to *time.Time) (decimal.Decimal, error) {
	if _, err := s.printers.Get(ctx, printerID); err != nil {
		return decimal.Zero, err
	}
	return s.orders.TotalCost(ctx, printerID, from, to)
}
