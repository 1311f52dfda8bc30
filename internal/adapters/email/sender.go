// Package email provides outbound mail delivery for administrative
// notifications such as bulk-import summaries.
package email

import (
	"context"
	"time"
)

// SendRequest describes a single outbound email.
type SendRequest struct {
	From    string
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// SendResult carries provider metadata for a sent email.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers emails. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
