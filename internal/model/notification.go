package model

import (
	"encoding/json"
	"time"
)

const (
	NotificationOrderCreated  = "order_created"
	NotificationPaymentStatus = "payment_status"
	NotificationPrinterOrder  = "NEW_ORDER"
)

type Notification struct {
	ID        string          `json:"id"`
	UserID    *string         `json:"user_id,omitempty"`
	OrderID   *string         `json:"order_id,omitempty"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Channel   string          `json:"channel"`
	Recipient string          `json:"recipient,omitempty"`
	Status    string          `json:"status"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
