package payload

import (
	"encoding/json"
	"fmt"

	"github.com/shineum/mailjet-transport/internal/email"
)

// V3Message is the flat v3 send API request body.
type V3Message struct {
	FromEmail   string            `json:"FromEmail,omitempty"`
	FromName    string            `json:"FromName,omitempty"`
	Subject     string            `json:"Subject,omitempty"`
	Recipients  []LegacyRecipient `json:"Recipients,omitempty"`
	HTMLPart    string            `json:"Html-part,omitempty"`
	TextPart    string            `json:"Text-part,omitempty"`
	Headers     map[string]string `json:"Headers,omitempty"`
	Attachments []V3Attachment    `json:"Attachments,omitempty"`

	// Fields holds provider header fields, encoded as top-level keys.
	Fields map[string]any `json:"-"`
}

// MarshalJSON merges Fields into the encoded object.
func (m V3Message) MarshalJSON() ([]byte, error) {
	type plain V3Message
	return marshalWithFields(plain(m), m.Fields)
}

// V3Attachment is a v3 attachment entry.
type V3Attachment struct {
	ContentType string `json:"Content-type"`
	Filename    string `json:"Filename"`
	Content     string `json:"content"`
}

// V3 builds v3 payloads. Recipients are merged into one list and Reply-To
// travels as a "Name <email>" entry of Headers. The format has no field for
// inline attachments; they are dropped.
type V3 struct {
	opts options
}

// NewV3 creates a v3 builder using the v3 header catalog unless overridden.
func NewV3(opts ...Option) *V3 {
	return &V3{opts: newOptions(V3HeaderTable(), opts)}
}

// Version returns "v3".
func (b *V3) Version() string {
	return VersionV3
}

// Build converts msg into a *V3Message.
func (b *V3) Build(msg *email.Message) (any, error) {
	return b.message(msg)
}

// Batch wraps the v3 message of every input in one BatchRequest.
func (b *V3) Batch(msgs []*email.Message) (any, error) {
	req := &BatchRequest{Messages: make([]any, 0, len(msgs))}
	for i, msg := range msgs {
		m, err := b.message(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		req.Messages = append(req.Messages, m)
	}
	return req, nil
}

func (b *V3) message(msg *email.Message) (*V3Message, error) {
	fields, userHeaders := splitHeaders(msg, b.opts.table, b.opts.logger)
	if replyTo := FormatReplyToHeader(msg); replyTo != "" {
		userHeaders["Reply-To"] = replyTo
	}

	content := Collect(msg)
	if len(content.Inline) > 0 {
		b.opts.logger.Debug("dropping inline attachments unsupported by v3 payload",
			"count", len(content.Inline),
			"subject", msg.Subject,
		)
	}

	m := &V3Message{
		FromEmail:  msg.From.Email,
		FromName:   msg.From.Name,
		Subject:    msg.Subject,
		Recipients: FormatLegacyRecipients(msg),
		HTMLPart:   content.HTML,
		TextPart:   content.Text,
	}
	if len(userHeaders) > 0 {
		m.Headers = userHeaders
	}
	if len(fields) > 0 {
		m.Fields = fields
	}
	for _, att := range content.Attachments {
		m.Attachments = append(m.Attachments, V3Attachment{
			ContentType: att.ContentType,
			Filename:    att.Filename,
			Content:     att.Base64Content,
		})
	}

	return m, nil
}

type v3Response struct {
	Sent []json.RawMessage `json:"Sent"`
}

// SentCount returns the number of entries under "Sent".
func (b *V3) SentCount(body []byte) int {
	var resp v3Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0
	}
	return len(resp.Sent)
}
