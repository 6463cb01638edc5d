package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/broker"
	"tchatsouvenir/bookshop/internal/model"
)

type NotificationService struct {
	tx            Transactor
	orders        OrderStore
	notifications NotificationStore
	mailer        Mailer
	printerEmail  string
	logger        *zap.Logger
}

func NewNotificationService(tx Transactor, orders OrderStore, notifications NotificationStore, mailer Mailer, printerEmail string, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		tx:            tx,
		orders:        orders,
		notifications: notifications,
		mailer:        mailer,
		printerEmail:  printerEmail,
		logger:        logger,
	}
}

// NotifyPrinter mails the order to the printer and records it. A PAID order
// moves to PRINTER_NOTIFIED.
func (s *NotificationService) NotifyPrinter(ctx context.Context, orderID, printerEmail string) (*model.Notification, error) {
	if printerEmail == "" {
		printerEmail = s.printerEmail
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	m := printerMail(order, printerEmail)
	if err := s.mailer.Send(ctx, m); err != nil {
		return nil, fmt.Errorf("send printer email: %w", err)
	}

	meta, _ := json.Marshal(map[string]string{
		"order_reference": order.OrderReference,
		"total_amount":    order.TotalAmount.String(),
		"book_format":     order.BookFormat,
	})
	n := &model.Notification{
		ID:        newID(),
		OrderID:   &order.ID,
		Type:      model.NotificationPrinterOrder,
		Title:     m.Subject,
		Message:   m.Body,
		Channel:   "email",
		Recipient: printerEmail,
		Status:    "SENT",
		Metadata:  meta,
	}

	err = s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		if err := s.notifications.Insert(ctx, n); err != nil {
			return err
		}
		locked, err := s.orders.GetForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		if locked.Status != model.OrderStatusPaid {
			return nil
		}
		locked.Status = model.OrderStatusPrinterNotified
		return s.orders.Update(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("printer notified",
		zap.String("order_reference", order.OrderReference),
		zap.String("recipient", printerEmail),
	)
	return n, nil
}

func printerMail(o *model.Order, to string) Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "Nouvelle commande à imprimer\n\nRéférence : %s\n", o.OrderReference)
	if o.BookTitle != "" {
		fmt.Fprintf(&b, "Livre : %s\n", o.BookTitle)
	}
	if o.BookFormat != "" {
		fmt.Fprintf(&b, "Format : %s\n", o.BookFormat)
	}
	fmt.Fprintf(&b, "Montant : %s %s\n", o.TotalAmount.StringFixed(0), o.Currency)

	if len(o.Items) > 0 {
		b.WriteString("\nArticles :\n")
		for _, it := range o.Items {
			fmt.Fprintf(&b, "- %s x%d (%s)\n", it.Name, it.Quantity, it.TotalPrice().StringFixed(0))
		}
	}
	if a := o.ShippingAddress; a != nil {
		fmt.Fprintf(&b, "\nLivraison :\n%s\n%s\n%s, %s %s\nTél : %s\n", a.Name, a.Address, a.City, a.PostalCode, a.Country, a.Phone)
		if a.Email != "" {
			fmt.Fprintf(&b, "Email : %s\n", a.Email)
		}
	}

	return Mail{
		To:      to,
		Subject: "Nouvelle commande Tchat Souvenir #" + o.OrderReference,
		Body:    b.String(),
	}
}

// HandleEvent consumes a broker message. Events that can never succeed are
// reported as broker.ErrMalformedEvent so the consumer drops them.
func (s *NotificationService) HandleEvent(ctx context.Context, raw []byte) error {
	e, err := broker.DecodeEvent(raw)
	if err != nil {
		return err
	}
	if e.Type != broker.EventOrderPaid {
		s.logger.Debug("ignoring event", zap.String("type", e.Type))
		return nil
	}

	_, err = s.NotifyPrinter(ctx, e.OrderID, e.PrinterEmail)
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%w: %v", broker.ErrMalformedEvent, err)
	}
	return err
}

func (s *NotificationService) ForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}
