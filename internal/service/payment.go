package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/broker"
	"tchatsouvenir/bookshop/internal/model"
	"tchatsouvenir/bookshop/internal/service/gateway"
)

type InitiatePaymentRequest struct {
	OrderID     string `json:"order_id"`
	Method      string `json:"payment_method"`
	PhoneNumber string `json:"phone_number"`
}

type InitiatePaymentResult struct {
	Payment    *model.Payment `json:"payment"`
	PaymentURL string         `json:"payment_url,omitempty"`
}

// CallbackRequest is a provider's report on a transaction.
type CallbackRequest struct {
	TransactionID     string `json:"transaction_id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	Reason            string `json:"reason"`
}

type PaymentConfig struct {
	Provider     string
	CallbackURL  string
	ReturnURL    string
	PrinterEmail string
}

type PaymentService struct {
	tx            Transactor
	payments      PaymentStore
	orders        OrderStore
	books         BookStore
	notifications NotificationStore
	gateway       gateway.Gateway
	publisher     broker.Publisher
	cfg           PaymentConfig
	logger        *zap.Logger
	now           func() time.Time
}

func NewPaymentService(tx Transactor, payments PaymentStore, orders OrderStore, books BookStore, notifications NotificationStore,
	gw gateway.Gateway, publisher broker.Publisher, cfg PaymentConfig, logger *zap.Logger) *PaymentService {
	if cfg.Provider == "" {
		cfg.Provider = "simulated"
	}
	return &PaymentService{
		tx:            tx,
		payments:      payments,
		orders:        orders,
		books:         books,
		notifications: notifications,
		gateway:       gw,
		publisher:     publisher,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// NewTransactionID returns an id of the form TXN-<unix millis>-<8 hex>.
func NewTransactionID(now time.Time) string {
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), shortHex())
}

func (s *PaymentService) Initiate(ctx context.Context, userID string, req InitiatePaymentRequest) (*InitiatePaymentResult, error) {
	method, ok := model.ParsePaymentMethod(req.Method)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported payment method %q", model.ErrValidation, req.Method)
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if method.IsMobileMoney() && phone == "" {
		return nil, fmt.Errorf("%w: phone_number is required for %s", model.ErrValidation, method)
	}

	var (
		p     *model.Payment
		order *model.Order
	)
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return fmt.Errorf("%w: order belongs to another user", model.ErrForbidden)
		}
		if order.Status != model.OrderStatusPendingPayment {
			return fmt.Errorf("%w: order %s is %s", model.ErrInvalidState, order.OrderReference, order.Status)
		}
		// The order row lock serializes concurrent initiations.
		pending, err := s.payments.PendingForOrder(ctx, order.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: payment %s is already pending for order %s", model.ErrConflict, pending.TransactionID, order.OrderReference)
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		p = &model.Payment{
			ID:            newID(),
			TransactionID: NewTransactionID(s.now()),
			UserID:        userID,
			OrderID:       order.ID,
			Amount:        order.TotalAmount,
			Currency:      order.Currency,
			PaymentMethod: method,
			Provider:      s.cfg.Provider,
			PhoneNumber:   phone,
			Status:        model.PaymentStatusPending,
		}
		if p.Currency == "" {
			p.Currency = "XOF"
		}
		if err := s.payments.Insert(ctx, p); err != nil {
			return err
		}

		order.PaymentMethod = string(method)
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.Initiate(ctx, gateway.InitiateRequest{
		TransactionID:  p.TransactionID,
		OrderReference: order.OrderReference,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Method:         method,
		PhoneNumber:    phone,
		CallbackURL:    s.cfg.CallbackURL,
		ReturnURL:      s.cfg.ReturnURL,
	})
	if err != nil {
		s.logger.Error("gateway initiate failed", zap.String("transaction_id", p.TransactionID), zap.Error(err))
		if _, cbErr := s.Callback(ctx, CallbackRequest{
			TransactionID: p.TransactionID,
			Status:        string(model.PaymentStatusFailed),
			Reason:        err.Error(),
		}); cbErr != nil {
			s.logger.Error("failed to record gateway failure", zap.Error(cbErr))
		}
		return nil, fmt.Errorf("initiate payment: %w", err)
	}

	if resp.ExternalReference != "" {
		p.ExternalReference = resp.ExternalReference
		if err := s.payments.Update(ctx, p); err != nil {
			return nil, err
		}
	}

	s.logger.Info("payment initiated",
		zap.String("transaction_id", p.TransactionID),
		zap.String("order_id", p.OrderID),
		zap.String("method", string(method)),
	)
	return &InitiatePaymentResult{Payment: p, PaymentURL: resp.PaymentURL}, nil
}

// Status returns the payment, first asking the gateway about pending ones.
func (s *PaymentService) Status(ctx context.Context, txID string) (*model.Payment, error) {
	p, err := s.payments.GetByTransactionID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if p.Status.Final() || s.gateway == nil {
		return p, nil
	}

	statuses, err := s.gateway.Status(ctx, txID)
	if err != nil {
		s.logger.Warn("gateway status probe failed", zap.String("transaction_id", txID), zap.Error(err))
		return p, nil
	}
	for _, st := range statuses {
		if st.TransactionID != txID {
			continue
		}
		return s.Callback(ctx, CallbackRequest{
			TransactionID:     txID,
			Status:            st.Status,
			ExternalReference: st.ExternalReference,
			Reason:            st.Reason,
		})
	}
	return p, nil
}

// Callback applies a provider status to a payment. A SUCCESS marks the order
// paid and its book ordered, then emits the printer notification event.
// Payments already in a final status are returned unchanged.
func (s *PaymentService) Callback(ctx context.Context, req CallbackRequest) (*model.Payment, error) {
	if strings.TrimSpace(req.TransactionID) == "" {
		return nil, fmt.Errorf("%w: transaction_id is required", model.ErrValidation)
	}
	status, ok := model.ParsePaymentStatus(req.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment status %q", model.ErrValidation, req.Status)
	}

	var (
		p       *model.Payment
		applied bool
		paid    bool
	)
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.payments.GetByTransactionIDForUpdate(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		if p.Status.Final() || status == model.PaymentStatusPending {
			return nil
		}

		now := s.now()
		p.Status = status
		if req.ExternalReference != "" {
			p.ExternalReference = req.ExternalReference
		}
		switch status {
		case model.PaymentStatusSuccess:
			p.CompletedAt = &now
			if paid, err = s.markPaid(ctx, p); err != nil {
				return err
			}
		default:
			p.FailureReason = req.Reason
		}
		if err := s.payments.Update(ctx, p); err != nil {
			return err
		}
		applied = true
		return s.notifyCustomer(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.logger.Info("payment updated", zap.String("transaction_id", p.TransactionID), zap.String("status", string(p.Status)))
	}
	if paid {
		s.publishPaid(ctx, p.OrderID)
	}
	return p, nil
}

// markPaid moves an order awaiting payment to PAID and its book to ORDERED.
// It reports false when the order had already left PENDING_PAYMENT, in which
// case the payment is still recorded but the order is left untouched.
func (s *PaymentService) markPaid(ctx context.Context, p *model.Payment) (bool, error) {
	order, err := s.orders.GetForUpdate(ctx, p.OrderID)
	if err != nil {
		return false, err
	}
	if order.Status != model.OrderStatusPendingPayment {
		s.logger.Warn("payment captured for an order no longer awaiting payment",
			zap.String("transaction_id", p.TransactionID),
			zap.String("order_id", order.ID),
			zap.String("order_status", string(order.Status)),
		)
		return false, nil
	}
	order.Status = model.OrderStatusPaid
	order.PaymentID = p.TransactionID
	order.PaymentMethod = string(p.PaymentMethod)
	if err := s.orders.Update(ctx, order); err != nil {
		return false, err
	}

	if order.BookID == nil {
		return true, nil
	}
	book, err := s.books.Get(ctx, *order.BookID)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("paid order references a missing book", zap.String("order_id", order.ID), zap.String("book_id", *order.BookID))
		return true, nil
	}
	if err != nil {
		return false, err
	}
	book.Status = model.BookStatusOrdered
	return true, s.books.Update(ctx, book)
}

func (s *PaymentService) notifyCustomer(ctx context.Context, p *model.Payment) error {
	msg := "Votre paiement a été confirmé."
	if p.Status != model.PaymentStatusSuccess {
		msg = "Votre paiement n'a pas abouti."
		if p.FailureReason != "" {
			msg += " " + p.FailureReason
		}
	}
	meta, _ := json.Marshal(map[string]string{
		"transaction_id": p.TransactionID,
		"status":         string(p.Status),
	})
	return s.notifications.Insert(ctx, &model.Notification{
		ID:       newID(),
		UserID:   &p.UserID,
		OrderID:  &p.OrderID,
		Type:     model.NotificationPaymentStatus,
		Title:    "Paiement " + strings.ToLower(string(p.Status)),
		Message:  msg,
		Channel:  "in_app",
		Status:   "SENT",
		Metadata: meta,
	})
}

func (s *PaymentService) publishPaid(ctx context.Context, orderID string) {
	err := s.publisher.Publish(ctx, broker.Event{
		Type:         broker.EventOrderPaid,
		OrderID:      orderID,
		PrinterEmail: s.cfg.PrinterEmail,
		OccurredAt:   s.now(),
	})
	if err != nil {
		s.logger.Error("failed to publish printer notification", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *PaymentService) History(ctx context.Context, userID string) ([]model.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}
