package email

import (
	"context"
	"log/slog"
	"time"
)

// NoopSender logs emails instead of delivering them. Used when no provider
// key is configured (development, tests).
type NoopSender struct{}

// NewNoopSender creates a sender that drops every email after logging it.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the email and reports success without delivering anything.
// POST: Returns a synthetic message id; never fails
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	slog.Info("noop_email", "to", req.To, "subject", req.Subject)
	return SendResult{MessageID: "noop", SentAt: time.Now()}, nil
}
