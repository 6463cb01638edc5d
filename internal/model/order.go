package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPendingPayment  OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusPrinterNotified OrderStatus = "PRINTER_NOTIFIED"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRefunded        OrderStatus = "REFUNDED"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusPrinterNotified,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment:  {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:            {OrderStatusProcessing, OrderStatusPrinterNotified, OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing:      {OrderStatusPrinterNotified, OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPrinterNotified: {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:         {OrderStatusDelivered, OrderStatusRefunded},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range OrderStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo reports whether an order in status s may move to next.
// Re-applying the current status is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Missing returns the names of required fields left empty.
func (a ShippingAddress) Missing() []string {
	fields := []struct{ name, value string }{
		{"name", a.Name},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"country", a.Country},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type OrderItem struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	BookFormat    string          `json:"book_format,omitempty"`
	BookCoverType string          `json:"book_cover_type,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
}

func (i OrderItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                    string           `json:"id"`
	OrderReference        string           `json:"order_reference"`
	UserID                string           `json:"user_id"`
	Items                 []OrderItem      `json:"items"`
	TotalAmount           decimal.Decimal  `json:"total_amount"`
	Currency              string           `json:"currency"`
	Status                OrderStatus      `json:"status"`
	ShippingAddress       *ShippingAddress `json:"shipping_address,omitempty"`
	PaymentMethod         string           `json:"payment_method,omitempty"`
	PaymentID             string           `json:"payment_id,omitempty"`
	BookFormat            string           `json:"book_format,omitempty"`
	BookID                *string          `json:"book_id,omitempty"`
	BookTitle             string           `json:"book_title,omitempty"`
	TrackingNumber        string           `json:"tracking_number,omitempty"`
	EstimatedDeliveryDate *time.Time       `json:"estimated_delivery_date,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
	CompletedAt           *time.Time       `json:"completed_at,omitempty"`
}

func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice())
	}
	return total
}

type OrderFilter struct {
	Status        OrderStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	Search        string
	BookFormat    string
	PaymentMethod string
}

type OrderStats struct {
	Total    int                 `json:"total"`
	ByStatus map[OrderStatus]int `json:"by_status"`
}
