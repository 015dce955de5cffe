// Package notifier delivers pipeline status, trade and error alerts to a chat.
package notifier

import "context"

// Notifier sends a text message to a configured recipient.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Noop discards every message.
type Noop struct{}

func (Noop) Send(context.Context, string) error { return nil }
