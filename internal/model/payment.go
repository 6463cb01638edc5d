package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	st := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return st, true
	case "COMPLETED", "PAID":
		return PaymentStatusSuccess, true
	}
	return "", false
}

func (s PaymentStatus) Final() bool {
	return s != PaymentStatusPending
}

type PaymentMethod string

const (
	MethodOrangeMoney PaymentMethod = "orange_money"
	MethodWave        PaymentMethod = "wave"
	MethodMobileMoney PaymentMethod = "mobile_money"
	MethodCreditCard  PaymentMethod = "credit_card"
	MethodBank        PaymentMethod = "bank"
	MethodPaypal      PaymentMethod = "paypal"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodOrangeMoney, MethodWave, MethodMobileMoney, MethodCreditCard, MethodBank, MethodPaypal:
		return m, true
	case "card":
		return MethodCreditCard, true
	}
	return "", false
}

func (m PaymentMethod) IsMobileMoney() bool {
	return m == MethodOrangeMoney || m == MethodWave || m == MethodMobileMoney
}

type Payment struct {
	ID                string          `json:"id"`
	TransactionID     string          `json:"transaction_id"`
	UserID            string          `json:"user_id"`
	OrderID           string          `json:"order_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Provider          string          `json:"provider,omitempty"`
	PhoneNumber       string          `json:"phone_number,omitempty"`
	Status            PaymentStatus   `json:"status"`
	ExternalReference string          `json:"external_reference,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}
