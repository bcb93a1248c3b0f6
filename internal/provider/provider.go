// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"
	"net/mail"

	"github.com/shineum/mailjet-transport/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// The CLI hands every parsed message to exactly one provider.
type Provider interface {
	// Send delivers an email message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}

// BatchProvider is implemented by providers that can deliver several
// messages in one request.
type BatchProvider interface {
	Provider

	// SendBatch delivers every message in a single call. A failure
	// applies to the whole batch.
	SendBatch(ctx context.Context, msgs []*email.Message) error
}

// FormatAddress renders a as an RFC 5322 mailbox. A bare address is returned
// unchanged.
func FormatAddress(a email.Address) string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// FormatAddresses renders every address with FormatAddress.
func FormatAddresses(addrs []email.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, FormatAddress(a))
	}
	return out
}
