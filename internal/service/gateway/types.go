package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tchatsouvenir/bookshop/internal/model"
)

type InitiateRequest struct {
	TransactionID  string              `json:"transaction_id"`
	OrderReference string              `json:"order_reference"`
	Amount         decimal.Decimal     `json:"amount"`
	Currency       string              `json:"currency"`
	Method         model.PaymentMethod `json:"payment_method"`
	PhoneNumber    string              `json:"phone_number,omitempty"`
	CallbackURL    string              `json:"callback_url,omitempty"`
	ReturnURL      string              `json:"return_url,omitempty"`
}

type InitiateResponse struct {
	TransactionID     string `json:"transaction_id"`
	PaymentURL        string `json:"payment_url,omitempty"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference,omitempty"`
}

type TransactionStatus struct {
	TransactionID     string `json:"transaction_id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

type APIError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Errors []APIError `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("payment gateway error: %v", e.Errors)
}
