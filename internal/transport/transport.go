// Package transport holds the outbound message senders. The dispatcher only
// sees the Sender interface; Twilio and SES live behind it.
package transport

import (
	"context"
)

// Message is a single outbound send.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one message and returns the provider's reference ID.
type Sender interface {
	Send(ctx context.Context, msg Message) (providerRef string, err error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) (string, error)

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) (string, error) {
	return f(ctx, msg)
}
