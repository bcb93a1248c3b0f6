// Package mailjet implements a Provider backed by the Mailjet transport.
package mailjet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shineum/mailjet-transport/internal/email"
	"github.com/shineum/mailjet-transport/internal/transport"
)

// DeliveryError reports a send the Mailjet API did not accept. Failed holds
// the To recipients of the attempted messages and may be empty.
type DeliveryError struct {
	Failed []email.Address
	Err    error
}

func (e *DeliveryError) Error() string {
	addrs := make([]string, 0, len(e.Failed))
	for _, a := range e.Failed {
		addrs = append(addrs, a.Email)
	}
	if len(addrs) == 0 {
		return fmt.Sprintf("mailjet delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("mailjet delivery failed for %s: %v", strings.Join(addrs, ", "), e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Provider turns the transport's count and failed-recipient results into
// errors.
type Provider struct {
	mu        sync.Mutex
	transport *transport.Transport
	lastErr   error
}

// New wraps t. The provider registers a listener on t to capture the cause of
// failed sends.
func New(t *transport.Transport) *Provider {
	p := &Provider{transport: t}
	t.RegisterPlugin(transport.ListenerFuncs{
		After: func(evt *transport.SendEvent) {
			p.lastErr = evt.Err
		},
	})
	return p
}

// Transport returns the wrapped transport.
func (p *Provider) Transport() *transport.Transport {
	return p.transport
}

// Send delivers msg through the transport.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	return p.do(func() (int, []email.Address, error) {
		return p.transport.Send(ctx, msg)
	})
}

// SendBatch delivers msgs in a single API call.
func (p *Provider) SendBatch(ctx context.Context, msgs []*email.Message) error {
	return p.do(func() (int, []email.Address, error) {
		return p.transport.BulkSend(ctx, msgs)
	})
}

func (p *Provider) do(send func() (int, []email.Address, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastErr = nil
	sent, failed, err := send()
	if err != nil {
		return fmt.Errorf("mailjet transport: %w", err)
	}
	if p.lastErr != nil {
		return &DeliveryError{Failed: failed, Err: p.lastErr}
	}

	slog.Debug("mailjet provider send complete",
		"sent", sent,
		"format", p.transport.Format(),
	)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mailjet"
}
