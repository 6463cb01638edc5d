package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tchatsouvenir/bookshop/internal/broker"
	"tchatsouvenir/bookshop/internal/model"
	"tchatsouvenir/bookshop/internal/service/gateway"
)

type fakeTx struct{ calls int }

func (f *fakeTx) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound)
}

type memUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return fmt.Errorf("create user: %w", model.ErrConflict)
		}
	}
	u.CreatedAt = time.Now()
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, notFound("user", email)
}

func (m *memUsers) GetByResetToken(_ context.Context, token string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.ResetToken != nil && *u.ResetToken == token {
			return &u, nil
		}
	}
	return nil, notFound("reset token", token)
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return notFound("user", u.ID)
	}
	m.byID[u.ID] = *u
	return nil
}

type memCart struct {
	mu    sync.Mutex
	items map[string]model.CartItem
}

func newMemCart() *memCart { return &memCart{items: map[string]model.CartItem{}} }

func (m *memCart) List(_ context.Context, userID string) ([]model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.CartItem{}
	for _, c := range m.items {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *memCart) Get(_ context.Context, id string) (*model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, notFound("cart item", id)
	}
	return &c, nil
}

func (m *memCart) FindProduct(_ context.Context, userID, productID, format string) (*model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.UserID == userID && c.ProductID == productID && c.BookFormat == format {
			return &c, nil
		}
	}
	return nil, notFound("cart item", productID)
}

func (m *memCart) Insert(_ context.Context, c *model.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = *c
	return nil
}

func (m *memCart) SetQuantity(_ context.Context, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return notFound("cart item", id)
	}
	c.Quantity = quantity
	m.items[id] = c
	return nil
}

func (m *memCart) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return notFound("cart item", id)
	}
	delete(m.items, id)
	return nil
}

func (m *memCart) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.items {
		if c.UserID == userID {
			delete(m.items, id)
		}
	}
	return nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]model.Order
}

func newMemOrders() *memOrders { return &memOrders{orders: map[string]model.Order{}} }

func (m *memOrders) Insert(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrders) Get(_ context.Context, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	return &o, nil
}

func (m *memOrders) GetForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return m.Get(ctx, id)
}

func (m *memOrders) GetByReference(_ context.Context, ref string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderReference == ref {
			return &o, nil
		}
	}
	return nil, notFound("order", ref)
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) List(_ context.Context, f model.OrderFilter) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *memOrders) Update(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return notFound("order", o.ID)
	}
	o.UpdatedAt = time.Now()
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return notFound("order", id)
	}
	delete(m.orders, id)
	return nil
}

func (m *memOrders) CountByStatus(_ context.Context) (map[model.OrderStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.OrderStatus]int{}
	for _, o := range m.orders {
		out[o.Status]++
	}
	return out, nil
}

type memPayments struct {
	mu       sync.Mutex
	payments map[string]model.Payment
}

func newMemPayments() *memPayments { return &memPayments{payments: map[string]model.Payment{}} }

func (m *memPayments) Insert(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.TransactionID] = *p
	return nil
}

func (m *memPayments) GetByTransactionID(_ context.Context, txID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txID]
	if !ok {
		return nil, notFound("payment", txID)
	}
	return &p, nil
}

func (m *memPayments) GetByTransactionIDForUpdate(ctx context.Context, txID string) (*model.Payment, error) {
	return m.GetByTransactionID(ctx, txID)
}

func (m *memPayments) PendingForOrder(_ context.Context, orderID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == orderID && p.Status == model.PaymentStatusPending {
			return &p, nil
		}
	}
	return nil, notFound("pending payment", orderID)
}

func (m *memPayments) Update(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.TransactionID] = *p
	return nil
}

func (m *memPayments) ListByUser(_ context.Context, userID string) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Payment{}
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayments) CountByStatus(_ context.Context) (map[model.PaymentStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.PaymentStatus]int{}
	for _, p := range m.payments {
		out[p.Status]++
	}
	return out, nil
}

type memBooks struct {
	mu    sync.Mutex
	books map[string]model.Book
}

func newMemBooks() *memBooks { return &memBooks{books: map[string]model.Book{}} }

func (m *memBooks) Insert(_ context.Context, b *model.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	m.books[b.ID] = *b
	return nil
}

func (m *memBooks) Get(_ context.Context, id string) (*model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, notFound("book", id)
	}
	return &b, nil
}

func (m *memBooks) List(_ context.Context, f model.BookFilter) ([]model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Book{}
	for _, b := range m.books {
		if b.IsDeleted() != f.Deleted {
			continue
		}
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memBooks) Update(_ context.Context, b *model.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.ID]; !ok {
		return notFound("book", b.ID)
	}
	m.books[b.ID] = *b
	return nil
}

func (m *memBooks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return notFound("book", id)
	}
	delete(m.books, id)
	return nil
}

type memPrinters struct {
	mu       sync.Mutex
	printers map[string]model.Printer
	orders   []model.PrinterOrder
}

func newMemPrinters() *memPrinters { return &memPrinters{printers: map[string]model.Printer{}} }

func (m *memPrinters) Insert(_ context.Context, p *model.Printer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.printers[p.ID] = *p
	return nil
}

func (m *memPrinters) Get(_ context.Context, id string) (*model.Printer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.printers[id]
	if !ok {
		return nil, notFound("printer", id)
	}
	return &p, nil
}

func (m *memPrinters) List(_ context.Context, activeOnly bool) ([]model.Printer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Printer{}
	for _, p := range m.printers {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memPrinters) Update(_ context.Context, p *model.Printer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.printers[p.ID] = *p
	return nil
}

// memPrinterOrders shares memPrinters' lock and storage.
type memPrinterOrders struct{ *memPrinters }

func (m memPrinterOrders) Insert(_ context.Context, po *model.PrinterOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, *po)
	return nil
}

func (m memPrinterOrders) ListByPrinter(_ context.Context, printerID string, _, _ *time.Time) ([]model.PrinterOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PrinterOrder{}
	for _, po := range m.orders {
		if po.PrinterID == printerID {
			out = append(out, po)
		}
	}
	return out, nil
}

func (m memPrinterOrders) TotalCost(_ context.Context, printerID string, _, _ *time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, po := range m.orders {
		if po.PrinterID == printerID && po.Status != model.PrinterOrderCancelled {
			total = total.Add(po.Cost)
		}
	}
	return total, nil
}

type memNotifications struct {
	mu   sync.Mutex
	list []model.Notification
}

func (m *memNotifications) Insert(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, *n)
	return nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID string) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Notification{}
	for _, n := range m.list {
		if n.UserID != nil && *n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) ofType(typ string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.list {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Mail
	err  error
}

func (r *recordingMailer) Send(_ context.Context, m Mail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

type recordingPublisher struct {
	events []broker.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e broker.Event) error {
	r.events = append(r.events, e)
	return r.err
}

type stubGateway struct {
	initiateErr error
	status      string
	probes      int
}

func (g *stubGateway) Initiate(_ context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error) {
	if g.initiateErr != nil {
		return nil, g.initiateErr
	}
	return &gateway.InitiateResponse{
		TransactionID:     req.TransactionID,
		PaymentURL:        "https://pay.example.com/" + req.TransactionID,
		Status:            "PENDING",
		ExternalReference: "EXT-" + req.TransactionID,
	}, nil
}

func (g *stubGateway) Status(_ context.Context, txIDs ...string) ([]gateway.TransactionStatus, error) {
	g.probes++
	out := make([]gateway.TransactionStatus, 0, len(txIDs))
	for _, id := range txIDs {
		out = append(out, gateway.TransactionStatus{TransactionID: id, Status: g.status})
	}
	return out, nil
}

type staticCatalog struct{}

func (staticCatalog) PriceFor(f model.BookFormat) (decimal.Decimal, bool) {
	switch f {
	case model.FormatStandard:
		return decimal.NewFromInt(25000), true
	case model.FormatPremium:
		return decimal.NewFromInt(35000), true
	}
	return decimal.Zero, false
}

func (staticCatalog) CostFor(f model.BookFormat) (decimal.Decimal, bool) {
	switch f {
	case model.FormatStandard:
		return decimal.NewFromInt(8000), true
	case model.FormatPremium:
		return decimal.NewFromInt(15000), true
	}
	return decimal.Zero, false
}
