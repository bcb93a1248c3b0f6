package payload

import (
	"encoding/json"
	"fmt"

	"github.com/shineum/mailjet-transport/internal/email"
)

// V31Request is the v3.1 send API request body. The API has no single
// message shape, so one send is a batch of one.
type V31Request struct {
	Messages []*V31Message `json:"Messages"`
}

// V31Message is one entry of a v3.1 Messages array.
type V31Message struct {
	From               *Recipient            `json:"From,omitempty"`
	To                 []Recipient           `json:"To,omitempty"`
	Cc                 []Recipient           `json:"Cc,omitempty"`
	Bcc                []Recipient           `json:"Bcc,omitempty"`
	Subject            string                `json:"Subject,omitempty"`
	HTMLPart           string                `json:"HTMLPart,omitempty"`
	TextPart           string                `json:"TextPart,omitempty"`
	ReplyTo            *Recipient            `json:"ReplyTo,omitempty"`
	Headers            map[string]string     `json:"Headers,omitempty"`
	Attachments        []V31Attachment       `json:"Attachments,omitempty"`
	InlinedAttachments []V31InlineAttachment `json:"InlinedAttachments,omitempty"`

	// Fields holds provider header fields, encoded as top-level keys.
	Fields map[string]any `json:"-"`
}

// MarshalJSON merges Fields into the encoded object.
func (m V31Message) MarshalJSON() ([]byte, error) {
	type plain V31Message
	return marshalWithFields(plain(m), m.Fields)
}

// V31Attachment is a v3.1 attachment entry.
type V31Attachment struct {
	ContentType   string `json:"ContentType"`
	Filename      string `json:"Filename"`
	Base64Content string `json:"Base64Content"`
}

// V31InlineAttachment is a v3.1 inline attachment entry.
type V31InlineAttachment struct {
	ContentType   string `json:"ContentType"`
	Filename      string `json:"Filename"`
	ContentID     string `json:"ContentID"`
	Base64Content string `json:"Base64Content"`
}

// V31 builds v3.1 payloads with per-class recipient lists and a structured
// ReplyTo.
type V31 struct {
	opts options
}

// NewV31 creates a v3.1 builder using the v3.1 header catalog unless
// overridden.
func NewV31(opts ...Option) *V31 {
	return &V31{opts: newOptions(V31HeaderTable(), opts)}
}

// Version returns "v3.1".
func (b *V31) Version() string {
	return VersionV31
}

// Build converts msg into a *V31Request with exactly one message.
func (b *V31) Build(msg *email.Message) (any, error) {
	m, err := b.message(msg)
	if err != nil {
		return nil, err
	}
	return &V31Request{Messages: []*V31Message{m}}, nil
}

// Batch flattens the messages of every input into one Messages array.
func (b *V31) Batch(msgs []*email.Message) (any, error) {
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

func (b *V31) message(msg *email.Message) (*V31Message, error) {
	fields, userHeaders := splitHeaders(msg, b.opts.table, b.opts.logger)
	content := Collect(msg)

	m := &V31Message{
		To:       FormatAddressList(msg.To),
		Cc:       FormatAddressList(msg.Cc),
		Bcc:      FormatAddressList(msg.Bcc),
		Subject:  msg.Subject,
		HTMLPart: content.HTML,
		TextPart: content.Text,
		ReplyTo:  FormatReplyTo(msg),
	}
	if msg.From.Email != "" {
		m.From = &Recipient{Email: msg.From.Email, Name: msg.From.Name}
	}
	if len(userHeaders) > 0 {
		m.Headers = userHeaders
	}
	if len(fields) > 0 {
		m.Fields = fields
	}
	for _, att := range content.Attachments {
		m.Attachments = append(m.Attachments, V31Attachment{
			ContentType:   att.ContentType,
			Filename:      att.Filename,
			Base64Content: att.Base64Content,
		})
	}
	for _, att := range content.Inline {
		m.InlinedAttachments = append(m.InlinedAttachments, V31InlineAttachment{
			ContentType:   att.ContentType,
			Filename:      att.Filename,
			ContentID:     att.ContentID,
			Base64Content: att.Base64Content,
		})
	}

	return m, nil
}

type v31Response struct {
	Messages []struct {
		To  []json.RawMessage `json:"To"`
		Cc  []json.RawMessage `json:"Cc"`
		Bcc []json.RawMessage `json:"Bcc"`
	} `json:"Messages"`
}

// SentCount sums the To, Cc and Bcc entries of every message result.
func (b *V31) SentCount(body []byte) int {
	var resp v31Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0
	}
	count := 0
	for _, m := range resp.Messages {
		count += len(m.To) + len(m.Cc) + len(m.Bcc)
	}
	return count
}
