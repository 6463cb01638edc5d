package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/broker"
	"tchatsouvenir/bookshop/internal/model"
)

type paymentFixture struct {
	*orderFixture
	payments  *memPayments
	books     *memBooks
	gateway   *stubGateway
	publisher *recordingPublisher
	svc       *PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		orderFixture: newOrderFixture(),
		payments:     newMemPayments(),
		books:        newMemBooks(),
		gateway:      &stubGateway{status: "PENDING"},
		publisher:    &recordingPublisher{},
	}
	f.svc = NewPaymentService(f.tx, f.payments, f.orders, f.books, f.notifications, f.gateway, f.publisher,
		PaymentConfig{Provider: "stub", PrinterEmail: "print@example.com"}, zap.NewNop())
	return f
}

func (f *paymentFixture) placeOrder(t *testing.T, userID string, bookID *string) *model.Order {
	t.Helper()
	o, err := f.orderFixture.svc.Create(context.Background(), userID, CreateOrderRequest{
		Items:           []model.OrderItem{{ProductID: "book-1", Quantity: 1, UnitPrice: decimal.NewFromInt(25000)}},
		ShippingAddress: dakar,
		BookID:          bookID,
	})
	require.NoError(t, err)
	return o
}

func TestPaymentService_InitiateValidation(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "u1", nil)

	_, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "bitcoin"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "wave"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.svc.Initiate(ctx, "u2", InitiatePaymentRequest{OrderID: o.ID, Method: "paypal"})
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = f.orderFixture.svc.UpdateStatus(ctx, o.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	_, err = f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "paypal"})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestPaymentService_SuccessfulCallback(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	book := &model.Book{ID: "b1", UserID: "u1", Title: "Nous", Status: model.BookStatusApproved}
	require.NoError(t, f.books.Insert(ctx, book))
	o := f.placeOrder(t, "u1", &book.ID)

	res, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "orange_money", PhoneNumber: "+221770000000"})
	require.NoError(t, err)
	p := res.Payment
	assert.Regexp(t, regexp.MustCompile(`^TXN-\d+-[0-9a-f]{8}$`), p.TransactionID)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.Equal(t, "https://pay.example.com/"+p.TransactionID, res.PaymentURL)
	assert.Equal(t, "EXT-"+p.TransactionID, p.ExternalReference)
	assert.True(t, decimal.NewFromInt(25000).Equal(p.Amount))

	got, err := f.svc.Callback(ctx, CallbackRequest{TransactionID: p.TransactionID, Status: "success"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, got.Status)
	assert.NotNil(t, got.CompletedAt)

	order, _ := f.orders.Get(ctx, o.ID)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Equal(t, p.TransactionID, order.PaymentID)
	assert.Equal(t, "orange_money", order.PaymentMethod)

	b, _ := f.books.Get(ctx, "b1")
	assert.Equal(t, model.BookStatusOrdered, b.Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, broker.Event{
		Type:         broker.EventOrderPaid,
		OrderID:      o.ID,
		PrinterEmail: "print@example.com",
		OccurredAt:   f.publisher.events[0].OccurredAt,
	}, f.publisher.events[0])
	assert.Len(t, f.notifications.ofType(model.NotificationPaymentStatus), 1)

	// a late FAILED report does not undo the payment
	again, err := f.svc.Callback(ctx, CallbackRequest{TransactionID: p.TransactionID, Status: "FAILED", Reason: "late"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, again.Status)
	assert.Len(t, f.publisher.events, 1)
	assert.Len(t, f.notifications.ofType(model.NotificationPaymentStatus), 1)
}

func TestPaymentService_FailedCallback(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "u1", nil)

	res, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "card"})
	require.NoError(t, err)

	got, err := f.svc.Callback(ctx, CallbackRequest{TransactionID: res.Payment.TransactionID, Status: "FAILED", Reason: "insufficient funds"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, got.Status)
	assert.Equal(t, "insufficient funds", got.FailureReason)

	order, _ := f.orders.Get(ctx, o.ID)
	assert.Equal(t, model.OrderStatusPendingPayment, order.Status)
	assert.Empty(t, f.publisher.events)

	_, err = f.svc.Callback(ctx, CallbackRequest{TransactionID: "TXN-unknown", Status: "SUCCESS"})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.svc.Callback(ctx, CallbackRequest{TransactionID: res.Payment.TransactionID, Status: "maybe"})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.svc.Callback(ctx, CallbackRequest{Status: "SUCCESS"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPaymentService_GatewayFailureMarksPaymentFailed(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "u1", nil)
	f.gateway.initiateErr = errors.New("provider unavailable")

	_, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "paypal"})
	require.Error(t, err)

	history, err := f.svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.PaymentStatusFailed, history[0].Status)
	assert.Equal(t, "provider unavailable", history[0].FailureReason)
}

func TestPaymentService_StatusProbesGateway(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "u1", nil)

	res, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "wave", PhoneNumber: "+221"})
	require.NoError(t, err)
	txID := res.Payment.TransactionID

	p, err := f.svc.Status(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.Equal(t, 1, f.gateway.probes)

	f.gateway.status = "SUCCESS"
	p, err = f.svc.Status(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, p.Status)
	assert.Len(t, f.publisher.events, 1)

	_, err = f.svc.Status(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.gateway.probes)
}

func TestPaymentService_PublishErrorDoesNotFailCallback(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "u1", nil)
	f.publisher.err = errors.New("broker down")

	res, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "bank"})
	require.NoError(t, err)
	p, err := f.svc.Callback(ctx, CallbackRequest{TransactionID: res.Payment.TransactionID, Status: "PAID"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, p.Status)
}

func TestPaymentService_InitiateRejectsSecondPendingPayment(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "u1", nil)

	first, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "paypal"})
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "bank"})
	require.ErrorIs(t, err, model.ErrConflict)
	assert.Contains(t, err.Error(), first.Payment.TransactionID)

	_, err = f.svc.Callback(ctx, CallbackRequest{TransactionID: first.Payment.TransactionID, Status: "FAILED", Reason: "abandoned"})
	require.NoError(t, err)

	retry, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "bank"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Payment.TransactionID, retry.Payment.TransactionID)

	history, err := f.svc.History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPaymentService_SecondSuccessForPaidOrder(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "u1", nil)

	res, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "paypal"})
	require.NoError(t, err)
	// a second pending payment inserted directly, bypassing Initiate
	other := *res.Payment
	other.ID = "p-other"
	other.TransactionID = "TXN-1-0000beef"
	require.NoError(t, f.payments.Insert(ctx, &other))

	_, err = f.svc.Callback(ctx, CallbackRequest{TransactionID: res.Payment.TransactionID, Status: "SUCCESS"})
	require.NoError(t, err)
	got, err := f.svc.Callback(ctx, CallbackRequest{TransactionID: other.TransactionID, Status: "SUCCESS"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, got.Status)

	order, _ := f.orders.Get(ctx, o.ID)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Equal(t, res.Payment.TransactionID, order.PaymentID)
	assert.Len(t, f.publisher.events, 1)
}

func TestPaymentService_SuccessAfterOrderMovedOn(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	o := f.placeOrder(t, "u1", nil)

	res, err := f.svc.Initiate(ctx, "u1", InitiatePaymentRequest{OrderID: o.ID, Method: "paypal"})
	require.NoError(t, err)

	shipped, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	shipped.Status = model.OrderStatusShipped
	require.NoError(t, f.orders.Update(ctx, shipped))

	got, err := f.svc.Callback(ctx, CallbackRequest{TransactionID: res.Payment.TransactionID, Status: "SUCCESS"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, got.Status)

	stored, err := f.payments.GetByTransactionID(ctx, res.Payment.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, stored.Status)

	order, _ := f.orders.Get(ctx, o.ID)
	assert.Equal(t, model.OrderStatusShipped, order.Status)
	assert.Empty(t, order.PaymentID)
	assert.Empty(t, f.publisher.events)
}
