// Package natsstan publishes and consumes broker events over NATS Streaming.
package natsstan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stan "github.com/nats-io/stan.go"
	"go.uber.org/zap"

	"tchatsouvenir/bookshop/internal/broker"
)

type Config struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
	Durable   string
}

func connect(cfg Config, suffix string) (stan.Conn, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("tchatsouvenir-%d", time.Now().UnixNano())
	}
	return stan.Connect(cfg.ClusterID, clientID+suffix, stan.NatsURL(cfg.URL))
}

type Publisher struct {
	conn    stan.Conn
	subject string
}

func NewPublisher(cfg Config) (*Publisher, error) {
	sc, err := connect(cfg, "-pub")
	if err != nil {
		return nil, fmt.Errorf("stan connect: %w", err)
	}
	return &Publisher{conn: sc, subject: cfg.Subject}, nil
}

// Publish blocks until the streaming server has persisted the event.
func (p *Publisher) Publish(_ context.Context, e broker.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, b); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.conn.Close() }

type Subscriber struct {
	Config Config
	Logger *zap.Logger
}

// Subscribe joins the durable queue group and acknowledges a message only
// once the handler succeeded. Malformed messages are acknowledged and dropped.
// It blocks until ctx is done.
func (s *Subscriber) Subscribe(ctx context.Context, handler broker.Handler) error {
	sc, err := connect(s.Config, "-sub")
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	defer sc.Close()

	durable := s.Config.Durable
	if durable == "" {
		durable = "printer-notifier"
	}

	_, err = sc.QueueSubscribe(s.Config.Subject, "printer-notifiers", func(m *stan.Msg) {
		if !s.process(ctx, handler, m.Data, m.Sequence) {
			// no ack, the server redelivers after AckWait
			return
		}
		if err := m.Ack(); err != nil {
			s.Logger.Error("ack failed", zap.Error(err))
		}
	}, stan.DurableName(durable), stan.SetManualAckMode(), stan.AckWait(30*time.Second), stan.DeliverAllAvailable())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.Config.Subject, err)
	}

	s.Logger.Info("subscribed", zap.String("subject", s.Config.Subject), zap.String("durable", durable))
	<-ctx.Done()
	return nil
}

// process runs the handler and reports whether the message should be
// acknowledged. Malformed messages are acknowledged so they are not redelivered.
func (s *Subscriber) process(ctx context.Context, handler broker.Handler, data []byte, seq uint64) bool {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	err := handler(hctx, data)
	switch {
	case err == nil:
		return true
	case errors.Is(err, broker.ErrMalformedEvent):
		s.Logger.Warn("dropping malformed message", zap.Uint64("sequence", seq), zap.Error(err))
		return true
	default:
		s.Logger.Warn("handler failed", zap.Uint64("sequence", seq), zap.Error(err))
		return false
	}
}
