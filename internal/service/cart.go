package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tchatsouvenir/bookshop/internal/model"
)

type AddToCartRequest struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	BookFormat  string          `json:"book_format"`
	ImageURL    string          `json:"image_url"`
}

type CartService struct {
	tx       Transactor
	cart     CartStore
	catalog  Catalog
	currency string
}

func NewCartService(tx Transactor, cart CartStore, catalog Catalog, currency string) *CartService {
	return &CartService{tx: tx, cart: cart, catalog: catalog, currency: currency}
}

// Add puts a product in the cart, adding to the quantity of a matching line.
// A zero unit price is taken from the catalog for the book format.
func (s *CartService) Add(ctx context.Context, userID string, req AddToCartRequest) (*model.CartItem, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, fmt.Errorf("%w: product_id is required", model.ErrValidation)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than 0", model.ErrValidation)
	}
	format := strings.ToUpper(strings.TrimSpace(req.BookFormat))
	if format != "" {
		f, ok := model.ParseBookFormat(format)
		if !ok {
			return nil, fmt.Errorf("%w: unknown book format %q", model.ErrValidation, req.BookFormat)
		}
		if req.UnitPrice.IsZero() {
			req.UnitPrice, _ = s.catalog.PriceFor(f)
		}
	}
	if !req.UnitPrice.IsPositive() {
		return nil, fmt.Errorf("%w: unit_price must be greater than 0", model.ErrValidation)
	}

	var item *model.CartItem
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		existing, err := s.cart.FindProduct(ctx, userID, req.ProductID, format)
		switch {
		case err == nil:
			existing.Quantity += req.Quantity
			item = existing
			return s.cart.SetQuantity(ctx, existing.ID, existing.Quantity)
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		item = &model.CartItem{
			ID:          newID(),
			UserID:      userID,
			ProductID:   req.ProductID,
			ProductName: req.ProductName,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
			BookFormat:  format,
			ImageURL:    req.ImageURL,
		}
		return s.cart.Insert(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) owned(ctx context.Context, userID, itemID string) (*model.CartItem, error) {
	item, err := s.cart.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, fmt.Errorf("%w: cart item belongs to another user", model.ErrForbidden)
	}
	return item, nil
}

// Update sets the quantity of a line. A quantity of zero or less removes it,
// in which case the returned item is nil.
func (s *CartService) Update(ctx context.Context, userID, itemID string, quantity int) (*model.CartItem, error) {
	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, s.cart.Delete(ctx, itemID)
	}
	if err := s.cart.SetQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

func (s *CartService) Remove(ctx context.Context, userID, itemID string) error {
	if _, err := s.owned(ctx, userID, itemID); err != nil {
		return err
	}
	return s.cart.Delete(ctx, itemID)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.cart.Clear(ctx, userID)
}

func (s *CartService) Items(ctx context.Context, userID string) ([]model.CartItem, error) {
	return s.cart.List(ctx, userID)
}

func (s *CartService) Summary(ctx context.Context, userID string) (model.CartSummary, error) {
	items, err := s.cart.List(ctx, userID)
	if err != nil {
		return model.CartSummary{}, err
	}
	return model.SummarizeCart(items, s.currency), nil
}
