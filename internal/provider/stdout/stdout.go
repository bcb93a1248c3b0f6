// Package stdout implements a Provider that prints emails to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shineum/mailjet-transport/internal/email"
	"github.com/shineum/mailjet-transport/internal/payload"
	"github.com/shineum/mailjet-transport/internal/provider"
)

// Provider prints email messages to stdout in a human-readable format.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the email message in a readable format. Write failures are
// logged and never returned.
func (p *Provider) Send(_ context.Context, msg *email.Message) error {
	var b strings.Builder
	content := payload.Collect(msg)

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "From: %s\n", provider.FormatAddress(msg.From))
	fmt.Fprintf(&b, "To: %s\n", strings.Join(provider.FormatAddresses(msg.To), ", "))

	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", strings.Join(provider.FormatAddresses(msg.Cc), ", "))
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\n", strings.Join(provider.FormatAddresses(msg.Bcc), ", "))
	}
	if msg.ReplyTo != nil {
		fmt.Fprintf(&b, "Reply-To: %s\n", provider.FormatAddress(*msg.ReplyTo))
	}

	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("Body:\n")

	body := content.Text
	if body == "" {
		body = content.HTML
	}
	b.WriteString(body + "\n")

	var attachments, inline []string
	for _, child := range msg.Children {
		att, ok := child.(*email.Attachment)
		if !ok {
			continue
		}
		desc := fmt.Sprintf("%s (%s)", att.Filename, formatSize(len(att.Content)))
		if att.IsInline() {
			inline = append(inline, desc)
		} else {
			attachments = append(attachments, desc)
		}
	}
	if len(attachments) > 0 {
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}
	if len(inline) > 0 {
		fmt.Fprintf(&b, "Inline: %s\n", strings.Join(inline, ", "))
	}

	b.WriteString("========================================\n")

	if _, err := fmt.Fprint(p.writer, b.String()); err != nil {
		slog.Warn("failed to write message to stdout", "error", err)
	}

	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
