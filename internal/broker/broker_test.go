package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	e, err := DecodeEvent([]byte(`{"type":"order.paid","order_id":"o-1","printer_email":"p@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "o-1", e.OrderID)

	_, err = DecodeEvent([]byte(`{"type":`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = DecodeEvent([]byte(`{"type":"order.paid"}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestInProcess(t *testing.T) {
	var got Event
	p := &InProcess{Handler: func(_ context.Context, raw []byte) error {
		var err error
		got, err = DecodeEvent(raw)
		return err
	}}

	at := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), Event{Type: EventOrderPaid, OrderID: "o-1", OccurredAt: at}))
	assert.Equal(t, "o-1", got.OrderID)
	assert.True(t, got.OccurredAt.Equal(at))
}
