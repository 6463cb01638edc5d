package service

import (
	"context"

	"go.uber.org/zap"
)

type Mail struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes outgoing mail to the log instead of delivering it.
type LogMailer struct {
	Logger *zap.Logger
}

func (l LogMailer) Send(_ context.Context, m Mail) error {
	l.Logger.Info("email",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("body", m.Body),
	)
	return nil
}
