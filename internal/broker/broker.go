// Package broker carries printer notification events from the payment flow
// to the notifier.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const EventOrderPaid = "order.paid"

var ErrMalformedEvent = errors.New("malformed event")

type Event struct {
	Type         string    `json:"type"`
	OrderID      string    `json:"order_id"`
	PrinterEmail string    `json:"printer_email,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Handler consumes one raw message. Returning an error wrapping
// ErrMalformedEvent drops the message; any other error asks for redelivery.
type Handler func(ctx context.Context, raw []byte) error

func DecodeEvent(raw []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if e.Type == "" || e.OrderID == "" {
		return Event{}, fmt.Errorf("%w: type and order_id are required", ErrMalformedEvent)
	}
	return e, nil
}

// InProcess hands events straight to a handler, for deployments without a broker.
type InProcess struct {
	Handler Handler
}

func (p *InProcess) Publish(ctx context.Context, e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Handler(ctx, raw)
}
