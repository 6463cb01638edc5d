package gateway

import (
	"context"
	"net/url"
	"strings"

	"tchatsouvenir/bookshop/internal/model"
)

// Simulated stands in for the provider when none is configured. Every
// transaction it is asked about has succeeded.
type Simulated struct {
	PublicURL string
}

func (s *Simulated) Initiate(_ context.Context, req InitiateRequest) (*InitiateResponse, error) {
	tx := url.QueryEscape(req.TransactionID)
	base := strings.TrimRight(s.PublicURL, "/")

	var payURL string
	switch req.Method {
	case model.MethodCreditCard:
		payURL = "https://secure-payment.bank.com/pay?session=" + tx
	case model.MethodPaypal:
		payURL = "https://www.paypal.com/checkoutnow?token=" + tx
	case model.MethodOrangeMoney:
		payURL = "https://webpayment.orange-money.com/pay?token=" + tx
	default:
		payURL = base + "/payment/confirm?transaction_id=" + tx
	}

	return &InitiateResponse{
		TransactionID:     req.TransactionID,
		PaymentURL:        payURL,
		Status:            string(model.PaymentStatusPending),
		ExternalReference: "SIM-" + req.TransactionID,
	}, nil
}

func (s *Simulated) Status(_ context.Context, txIDs ...string) ([]TransactionStatus, error) {
	out := make([]TransactionStatus, len(txIDs))
	for i, id := range txIDs {
		out[i] = TransactionStatus{
			TransactionID:     id,
			Status:            string(model.PaymentStatusSuccess),
			ExternalReference: "SIM-" + id,
		}
	}
	return out, nil
}
