package payload

import (
	"fmt"

	"github.com/shineum/mailjet-transport/internal/email"
)

// Recipient is a v3.1 address entry. Name is omitted when empty.
type Recipient struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

// LegacyRecipient is a v3 Recipients entry. Name is always present and is
// null when the address has no display name.
type LegacyRecipient struct {
	Email string  `json:"Email"`
	Name  *string `json:"Name"`
}

// FormatAddressList converts addresses to v3.1 recipient entries, keeping order.
func FormatAddressList(addrs []email.Address) []Recipient {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]Recipient, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, Recipient{Email: a.Email, Name: a.Name})
	}
	return out
}

// FormatLegacyRecipients merges To, Cc and Bcc into one v3 recipient list.
func FormatLegacyRecipients(msg *email.Message) []LegacyRecipient {
	total := len(msg.To) + len(msg.Cc) + len(msg.Bcc)
	if total == 0 {
		return nil
	}
	out := make([]LegacyRecipient, 0, total)
	for _, list := range [][]email.Address{msg.To, msg.Cc, msg.Bcc} {
		for _, a := range list {
			r := LegacyRecipient{Email: a.Email}
			if a.Name != "" {
				name := a.Name
				r.Name = &name
			}
			out = append(out, r)
		}
	}
	return out
}

// FormatReplyTo returns the structured reply-to entry, or nil when the
// message declares none.
func FormatReplyTo(msg *email.Message) *Recipient {
	if msg.ReplyTo == nil || msg.ReplyTo.Email == "" {
		return nil
	}
	return &Recipient{Email: msg.ReplyTo.Email, Name: msg.ReplyTo.Name}
}

// FormatReplyToHeader renders the reply-to address as a "Name <email>"
// header value, or "" when the message declares none.
func FormatReplyToHeader(msg *email.Message) string {
	r := FormatReplyTo(msg)
	if r == nil {
		return ""
	}
	if r.Name == "" {
		return fmt.Sprintf("<%s>", r.Email)
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Email)
}
