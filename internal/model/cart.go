package model

import "github.com/shopspring/decimal"

type CartItem struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	BookFormat  string          `json:"book_format,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

func (c CartItem) Subtotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type CartSummary struct {
	ItemCount int             `json:"item_count"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
}

func SummarizeCart(items []CartItem, currency string) CartSummary {
	s := CartSummary{ItemCount: len(items), Total: decimal.Zero, Currency: currency}
	for _, it := range items {
		s.Quantity += it.Quantity
		s.Total = s.Total.Add(it.Subtotal())
	}
	return s
}
