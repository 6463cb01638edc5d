package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tchatsouvenir/bookshop/internal/model"
)

// Transactor runs fn in a single database transaction. Stores called with
// the ctx handed to fn take part in it.
type Transactor interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetToken(ctx context.Context, token string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
}

type CartStore interface {
	List(ctx context.Context, userID string) ([]model.CartItem, error)
	Get(ctx context.Context, id string) (*model.CartItem, error)
	FindProduct(ctx context.Context, userID, productID, format string) (*model.CartItem, error)
	Insert(ctx context.Context, c *model.CartItem) error
	SetQuantity(ctx context.Context, id string, quantity int) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context, userID string) error
}

type OrderStore interface {
	Insert(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id string) (*model.Order, error)
	GetForUpdate(ctx context.Context, id string) (*model.Order, error)
	GetByReference(ctx context.Context, ref string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	List(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	Update(ctx context.Context, o *model.Order) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error)
}

type PaymentStore interface {
	Insert(ctx context.Context, p *model.Payment) error
	GetByTransactionID(ctx context.Context, txID string) (*model.Payment, error)
	GetByTransactionIDForUpdate(ctx context.Context, txID string) (*model.Payment, error)
	PendingForOrder(ctx context.Context, orderID string) (*model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
	ListByUser(ctx context.Context, userID string) ([]model.Payment, error)
	CountByStatus(ctx context.Context) (map[model.PaymentStatus]int, error)
}

type BookStore interface {
	Insert(ctx context.Context, b *model.Book) error
	Get(ctx context.Context, id string) (*model.Book, error)
	List(ctx context.Context, f model.BookFilter) ([]model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id string) error
}

type PrinterStore interface {
	Insert(ctx context.Context, p *model.Printer) error
	Get(ctx context.Context, id string) (*model.Printer, error)
	List(ctx context.Context, activeOnly bool) ([]model.Printer, error)
	Update(ctx context.Context, p *model.Printer) error
}

type PrinterOrderStore interface {
	Insert(ctx context.Context, po *model.PrinterOrder) error
	ListByPrinter(ctx context.Context, printerID string, from, to *time.Time) ([]model.PrinterOrder, error)
	TotalCost(ctx context.Context, printerID string, from, to *time.Time) (decimal.Decimal, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string) ([]model.Notification, error)
}

// Catalog prices book formats.
type Catalog interface {
	PriceFor(format model.BookFormat) (decimal.Decimal, bool)
	CostFor(format model.BookFormat) (decimal.Decimal, bool)
}

// Caller identifies who is acting on a resource.
type Caller struct {
	UserID string
	Admin  bool
}

func (c Caller) Owns(ownerID string) bool {
	return c.Admin || (c.UserID != "" && c.UserID == ownerID)
}

func newID() string {
	return uuid.NewString()
}

// shortHex returns the first 8 hex digits of a random uuid.
func shortHex() string {
	return uuid.NewString()[:8]
}
