package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tchatsouvenir/bookshop/internal/model"
	"tchatsouvenir/bookshop/internal/repository"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, repository.EnsureSchema(ctx, pool))

	_, err = pool.Exec(ctx, "TRUNCATE TABLE notifications, printer_orders, printers, payments, order_items, orders, books, cart_items, users CASCADE")
	require.NoError(t, err)
	return pool
}

func seedUser(t *testing.T, repo *repository.UserRepository) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.NewString(), Email: uuid.NewString() + "@example.com", FirstName: "Awa", LastName: "Diop",
		PasswordHash: "hash", Role: model.RoleUser, Active: true}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_Integration(t *testing.T) {
	db := repository.NewDB(setupTestDB(t))
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, users)

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, users.Create(ctx, &dup), model.ErrConflict)

	got, err := users.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	token := "reset-" + uuid.NewString()
	expiry := time.Now().Add(time.Hour)
	got.ResetToken, got.ResetTokenExpiry = &token, &expiry
	require.NoError(t, users.Update(ctx, got))

	byToken, err := users.GetByResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.ID)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestOrderRepository_Integration(t *testing.T) {
	db := repository.NewDB(setupTestDB(t))
	users := repository.NewUserRepository(db)
	orders := repository.NewOrderRepository(db)
	ctx := context.Background()

	u := seedUser(t, users)
	order := &model.Order{
		ID:             uuid.NewString(),
		OrderReference: "TS-20240312-ABCDEF12",
		UserID:         u.ID,
		Currency:       "XOF",
		Status:         model.OrderStatusPendingPayment,
		ShippingAddress: &model.ShippingAddress{
			Name: "Awa Diop", Phone: "+221770000000", Address: "Rue 10", City: "Dakar", Country: "SN",
		},
		Items: []model.OrderItem{
			{ID: uuid.NewString(), ProductID: "book-std", Name: "Livre", Quantity: 2, UnitPrice: decimal.RequireFromString("12500.25")},
			{ID: uuid.NewString(), ProductID: "ebook", Name: "Ebook", Quantity: 1, UnitPrice: decimal.NewFromInt(15000)},
		},
	}
	order.TotalAmount = model.OrderTotal(order.Items)

	rollback := errors.New("rollback")
	err := db.RunAtomic(ctx, func(ctx context.Context) error {
		require.NoError(t, orders.Insert(ctx, order))
		return rollback
	})
	require.ErrorIs(t, err, rollback)
	_, err = orders.Get(ctx, order.ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, db.RunAtomic(ctx, func(ctx context.Context) error {
		return orders.Insert(ctx, order)
	}))

	got, err := orders.GetByReference(ctx, order.OrderReference)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "book-std", got.Items[0].ProductID)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("40000.50")))
	assert.Equal(t, "Dakar", got.ShippingAddress.City)

	err = db.RunAtomic(ctx, func(ctx context.Context) error {
		o, err := orders.GetForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		o.Status = model.OrderStatusPaid
		o.PaymentID = "pay-1"
		return orders.Update(ctx, o)
	})
	require.NoError(t, err)

	list, err := orders.List(ctx, model.OrderFilter{Status: model.OrderStatusPaid, Search: "awa"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pay-1", list[0].PaymentID)

	counts, err := orders.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.OrderStatusPaid])

	missingBook := "missing-book"
	orphan := *order
	orphan.ID = uuid.NewString()
	orphan.OrderReference = "TS-20240312-0000FFFF"
	orphan.BookID = &missingBook
	orphan.Items = nil
	err = db.RunAtomic(ctx, func(ctx context.Context) error { return orders.Insert(ctx, &orphan) })
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPaymentRepository_PendingForOrder_Integration(t *testing.T) {
	db := repository.NewDB(setupTestDB(t))
	users := repository.NewUserRepository(db)
	orders := repository.NewOrderRepository(db)
	payments := repository.NewPaymentRepository(db)
	ctx := context.Background()

	u := seedUser(t, users)
	order := &model.Order{
		ID:             uuid.NewString(),
		OrderReference: "TS-20240312-00AA00AA",
		UserID:         u.ID,
		Currency:       "XOF",
		Status:         model.OrderStatusPendingPayment,
		TotalAmount:    decimal.NewFromInt(25000),
	}
	require.NoError(t, orders.Insert(ctx, order))

	_, err := payments.PendingForOrder(ctx, order.ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	newPayment := func(tx string) *model.Payment {
		return &model.Payment{
			ID: uuid.NewString(), TransactionID: tx, UserID: u.ID, OrderID: order.ID,
			Amount: order.TotalAmount, Currency: "XOF", PaymentMethod: model.MethodWave,
			Status: model.PaymentStatusPending,
		}
	}
	first := newPayment("TXN-1-aaaaaaaa")
	require.NoError(t, payments.Insert(ctx, first))

	got, err := payments.PendingForOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, got.TransactionID)

	err = payments.Insert(ctx, newPayment("TXN-2-bbbbbbbb"))
	assert.ErrorIs(t, err, model.ErrConflict)

	first.Status = model.PaymentStatusFailed
	require.NoError(t, payments.Update(ctx, first))
	_, err = payments.PendingForOrder(ctx, order.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	require.NoError(t, payments.Insert(ctx, newPayment("TXN-3-cccccccc")))
}

func TestBookAndPrinterRepositories_Integration(t *testing.T) {
	db := repository.NewDB(setupTestDB(t))
	ctx := context.Background()
	u := seedUser(t, repository.NewUserRepository(db))

	books := repository.NewBookRepository(db)
	b := &model.Book{
		ID: uuid.NewString(), UserID: u.ID, Title: "Nous deux", Status: model.BookStatusDraft, Format: model.FormatPremium,
		Design:       []byte(`{"cover_color":"#667eea"}`),
		SellingPrice: decimal.NewNullDecimal(decimal.NewFromInt(35000)),
	}
	require.NoError(t, books.Insert(ctx, b))

	got, err := books.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cover_color":"#667eea"}`, string(got.Design))
	assert.False(t, got.FabricationCost.Valid)
	assert.Nil(t, got.Content)

	now := time.Now()
	got.DeletedAt = &now
	got.Status = model.BookStatusDeleted
	require.NoError(t, books.Update(ctx, got))

	active, err := books.List(ctx, model.BookFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Empty(t, active)
	deleted, err := books.List(ctx, model.BookFilter{Deleted: true})
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	printers := repository.NewPrinterRepository(db)
	p := &model.Printer{ID: uuid.NewString(), Name: "Imprimerie", Email: "print@example.com", Active: true}
	p.ApplyDefaultCosts()
	require.NoError(t, printers.Insert(ctx, p))

	porders := repository.NewPrinterOrderRepository(db)
	for _, status := range []model.PrinterOrderStatus{model.PrinterOrderAssigned, model.PrinterOrderCancelled} {
		require.NoError(t, porders.Insert(ctx, &model.PrinterOrder{
			ID: uuid.NewString(), PrinterID: p.ID, BookID: b.ID, Cost: p.CostFor(model.FormatPremium), Status: status,
		}))
	}

	total, err := porders.TotalCost(ctx, p.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(15000)))

	list, err := porders.ListByPrinter(ctx, p.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
