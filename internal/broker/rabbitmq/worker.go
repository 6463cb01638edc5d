package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/broker"
)

type Worker struct {
	workerID  int
	channel   *amqp.Channel
	queueName string
	handler   broker.Handler
	logger    *zap.Logger
}

// NewWorker opens a dedicated channel that receives one unacknowledged
// message at a time.
func NewWorker(workerID int, conn *amqp.Connection, queueName string, handler broker.Handler, logger *zap.Logger) (*Worker, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel for worker %d: %w", workerID, err)
	}

	err = ch.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set QoS for worker %d: %w", workerID, err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		ch.Close()
		return nil, err
	}

	return &Worker{
		workerID:  workerID,
		channel:   ch,
		queueName: queueName,
		handler:   handler,
		logger:    logger.With(zap.Int("worker", workerID)),
	}, nil
}

// Start consumes until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer w.channel.Close()

	msgs, err := w.channel.Consume(
		w.queueName,                          // queue
		fmt.Sprintf("worker-%d", w.workerID), // consumer tag
		false,                                // auto-ack
		false,                                // exclusive
		false,                                // no-local
		false,                                // no-wait
		nil,                                  // args
	)
	if err != nil {
		w.logger.Error("failed to register consumer", zap.Error(err))
		return
	}

	w.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn("delivery channel closed")
				return
			}
			w.processMessage(ctx, msg)
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, msg amqp.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := w.handler(hctx, msg.Body)
	ack, requeue := disposition(err)

	if ack {
		if err := msg.Ack(false); err != nil {
			w.logger.Error("failed to acknowledge message", zap.Error(err))
		}
		return
	}

	w.logger.Warn("message rejected", zap.Bool("requeue", requeue), zap.Error(err))
	if err := msg.Nack(false, requeue); err != nil {
		w.logger.Error("failed to reject message", zap.Error(err))
	}
}

// disposition decides how a delivery is settled after the handler ran.
// Malformed messages are dropped, other failures are retried.
func disposition(err error) (ack, requeue bool) {
	switch {
	case err == nil:
		return true, false
	case errors.Is(err, broker.ErrMalformedEvent):
		return false, false
	default:
		return false, true
	}
}

// Consume runs n workers on conn until ctx is cancelled.
func Consume(ctx context.Context, conn *amqp.Connection, queueName string, n int, handler broker.Handler, logger *zap.Logger) error {
	return runWorkers(ctx, n, func(id int) (consumer, error) {
		w, err := NewWorker(id, conn, queueName, handler, logger)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
}

type consumer interface {
	Start(ctx context.Context, wg *sync.WaitGroup)
}

// runWorkers starts n consumers and waits for them. If one cannot be
// created, the ones already running are stopped before it returns.
func runWorkers(ctx context.Context, n int, newConsumer func(id int) (consumer, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		c, err := newConsumer(i)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		wg.Add(1)
		go c.Start(ctx, &wg)
	}
	wg.Wait()
	return nil
}
