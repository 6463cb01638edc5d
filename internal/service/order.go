package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tchatsouvenir/bookshop/internal/model"
)

type CreateOrderRequest struct {
	Items           []model.OrderItem     `json:"items"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	BookID          *string               `json:"book_id"`
	BookTitle       string                `json:"book_title"`
	BookFormat      string                `json:"book_format"`
}

type CheckoutRequest struct {
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	BookID          *string               `json:"book_id"`
	BookTitle       string                `json:"book_title"`
}

type OrderUpdate struct {
	TrackingNumber        *string    `json:"tracking_number"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date"`
}

type OrderService struct {
	tx            Transactor
	orders        OrderStore
	cart          CartStore
	notifications NotificationStore
	currency      string
	now           func() time.Time
}

func NewOrderService(tx Transactor, orders OrderStore, cart CartStore, notifications NotificationStore, currency string) *OrderService {
	return &OrderService{
		tx:            tx,
		orders:        orders,
		cart:          cart,
		notifications: notifications,
		currency:      currency,
		now:           time.Now,
	}
}

// NewOrderReference returns a reference of the form TS-YYYYMMDD-XXXXXXXX.
func NewOrderReference(now time.Time) string {
	return "TS-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(shortHex())
}

func validateItems(items []model.OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order has no items", model.ErrValidation)
	}
	for i, it := range items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be greater than 0", model.ErrValidation, i)
		}
		if !it.UnitPrice.IsPositive() {
			return fmt.Errorf("%w: item %d: unit_price must be greater than 0", model.ErrValidation, i)
		}
	}
	return nil
}

func validateShipping(addr model.ShippingAddress) error {
	if missing := addr.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: shipping address is missing %s", model.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

func (s *OrderService) Create(ctx context.Context, userID string, req CreateOrderRequest) (*model.Order, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}
	if err := validateShipping(req.ShippingAddress); err != nil {
		return nil, err
	}

	o := s.newOrder(userID, req.Items, req.ShippingAddress, req.PaymentMethod, req.BookID, req.BookTitle, req.BookFormat)
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		return s.place(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateFromCart turns the user's cart into an order and empties the cart.
func (s *OrderService) CreateFromCart(ctx context.Context, userID string, req CheckoutRequest) (*model.Order, error) {
	if err := validateShipping(req.ShippingAddress); err != nil {
		return nil, err
	}

	var o *model.Order
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		cart, err := s.cart.List(ctx, userID)
		if err != nil {
			return err
		}
		if len(cart) == 0 {
			return fmt.Errorf("%w: cart is empty", model.ErrValidation)
		}

		items := make([]model.OrderItem, 0, len(cart))
		for _, c := range cart {
			items = append(items, model.OrderItem{
				ProductID:  c.ProductID,
				Name:       c.ProductName,
				Quantity:   c.Quantity,
				UnitPrice:  c.UnitPrice,
				BookFormat: c.BookFormat,
				ImageURL:   c.ImageURL,
			})
		}
		if err := validateItems(items); err != nil {
			return err
		}

		o = s.newOrder(userID, items, req.ShippingAddress, req.PaymentMethod, req.BookID, req.BookTitle, "")
		if err := s.place(ctx, o); err != nil {
			return err
		}
		return s.cart.Clear(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) newOrder(userID string, items []model.OrderItem, addr model.ShippingAddress, method string, bookID *string, title, format string) *model.Order {
	o := &model.Order{
		ID:              newID(),
		OrderReference:  NewOrderReference(s.now()),
		UserID:          userID,
		Currency:        s.currency,
		Status:          model.OrderStatusPendingPayment,
		ShippingAddress: &addr,
		PaymentMethod:   method,
		BookID:          bookID,
		BookTitle:       title,
		BookFormat:      strings.ToUpper(format),
	}
	for _, it := range items {
		it.ID = newID()
		it.OrderID = o.ID
		o.Items = append(o.Items, it)
	}
	if o.BookFormat == "" {
		o.BookFormat = items[0].BookFormat
	}
	o.TotalAmount = model.OrderTotal(o.Items)
	return o
}

// place stores the order and the customer's notification. Call it inside RunAtomic.
func (s *OrderService) place(ctx context.Context, o *model.Order) error {
	if err := s.orders.Insert(ctx, o); err != nil {
		return err
	}
	meta, _ := json.Marshal(map[string]string{
		"order_reference": o.OrderReference,
		"total_amount":    o.TotalAmount.String(),
		"currency":        o.Currency,
	})
	return s.notifications.Insert(ctx, &model.Notification{
		ID:       newID(),
		UserID:   &o.UserID,
		OrderID:  &o.ID,
		Type:     model.NotificationOrderCreated,
		Title:    "Commande créée",
		Message:  fmt.Sprintf("Votre commande %s de %s %s a été enregistrée.", o.OrderReference, o.TotalAmount.StringFixed(0), o.Currency),
		Channel:  "in_app",
		Status:   "SENT",
		Metadata: meta,
	})
}

func (s *OrderService) Get(ctx context.Context, caller Caller, id string) (*model.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(o.UserID) {
		return nil, fmt.Errorf("%w: order belongs to another user", model.ErrForbidden)
	}
	return o, nil
}

func (s *OrderService) GetByReference(ctx context.Context, caller Caller, ref string) (*model.Order, error) {
	o, err := s.orders.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(o.UserID) {
		return nil, fmt.Errorf("%w: order belongs to another user", model.ErrForbidden)
	}
	return o, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) List(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	return s.orders.List(ctx, f)
}

// UpdateStatus moves an order along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	var o *model.Order
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: cannot move order from %s to %s", model.ErrInvalidState, o.Status, status)
		}
		o.Status = status
		if status == model.OrderStatusDelivered && o.CompletedAt == nil {
			now := s.now()
			o.CompletedAt = &now
		}
		return s.orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) Update(ctx context.Context, caller Caller, id string, in OrderUpdate) (*model.Order, error) {
	if !caller.Admin {
		return nil, fmt.Errorf("%w: admin only", model.ErrForbidden)
	}
	var o *model.Order
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.TrackingNumber != nil {
			o.TrackingNumber = strings.TrimSpace(*in.TrackingNumber)
		}
		if in.EstimatedDeliveryDate != nil {
			o.EstimatedDeliveryDate = in.EstimatedDeliveryDate
		}
		return s.orders.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	return s.orders.Delete(ctx, id)
}

func (s *OrderService) Stats(ctx context.Context) (model.OrderStats, error) {
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return model.OrderStats{}, err
	}
	return orderStats(counts), nil
}

func orderStats(counts map[model.OrderStatus]int) model.OrderStats {
	stats := model.OrderStats{ByStatus: make(map[model.OrderStatus]int, len(model.OrderStatuses))}
	for _, st := range model.OrderStatuses {
		stats.ByStatus[st] = counts[st]
		stats.Total += counts[st]
	}
	return stats
}
