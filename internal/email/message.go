// Package email defines the mail-composition object model consumed by the
// Mailjet transport: messages, addresses, body parts, attachments and headers.
package email

import "strings"

// Supported primary content types.
const (
	ContentTypeText = "text/plain"
	ContentTypeHTML = "text/html"
)

// Container content types the message switches to once children are added.
const (
	ContentTypeAlternative = "multipart/alternative"
	ContentTypeMixed       = "multipart/mixed"
)

// Address is a mailbox address with an optional display name.
type Address struct {
	Email string
	Name  string
}

// Message represents an email message with all its components.
//
// To, Cc and Bcc keep insertion order. The Add* helpers keep addresses
// unique; a repeated address replaces the display name in place.
type Message struct {
	Subject string
	From    Address
	To      []Address
	Cc      []Address
	Bcc     []Address

	// ReplyTo is nil when no reply address is declared. An Address with an
	// empty Name models a bare reply-to string.
	ReplyTo *Address

	ContentType string
	Body        string
	Children    []Part

	headers             *HeaderSet
	originalContentType string
}

// NewMessage creates a message with the given subject and primary body.
// An empty content type defaults to text/plain.
func NewMessage(subject, body, contentType string) *Message {
	m := &Message{Subject: subject}
	m.SetBody(body, contentType)
	return m
}

// SetBody replaces the primary body. If the message already carries child
// parts the declared content type stays on the multipart container and the
// given type is kept as the original content type.
func (m *Message) SetBody(body, contentType string) *Message {
	if contentType == "" {
		contentType = ContentTypeText
	}
	m.Body = body
	if len(m.Children) > 0 {
		m.originalContentType = contentType
		return m
	}
	m.ContentType = contentType
	m.originalContentType = contentType
	return m
}

// OriginalContentType returns the content type the caller declared for the
// primary body, even after adding children switched ContentType to a
// multipart container type.
func (m *Message) OriginalContentType() string {
	return m.originalContentType
}

// Headers returns the message header set, creating it on first use.
func (m *Message) Headers() *HeaderSet {
	if m.headers == nil {
		m.headers = NewHeaderSet()
	}
	return m.headers
}

// SetFrom sets the sender address.
func (m *Message) SetFrom(addr, name string) *Message {
	m.From = Address{Email: addr, Name: name}
	return m
}

// SetReplyTo sets the reply-to address. Pass an empty name for a bare address.
func (m *Message) SetReplyTo(addr, name string) *Message {
	m.ReplyTo = &Address{Email: addr, Name: name}
	return m
}

// AddTo appends a primary recipient.
func (m *Message) AddTo(addr, name string) *Message {
	m.To = addAddress(m.To, addr, name)
	return m
}

// AddCc appends a carbon-copy recipient.
func (m *Message) AddCc(addr, name string) *Message {
	m.Cc = addAddress(m.Cc, addr, name)
	return m
}

// AddBcc appends a blind carbon-copy recipient.
func (m *Message) AddBcc(addr, name string) *Message {
	m.Bcc = addAddress(m.Bcc, addr, name)
	return m
}

// AddPart appends an alternative body representation.
func (m *Message) AddPart(content, contentType string) *Message {
	m.addChild(&BodyPart{ContentType: contentType, Content: content}, ContentTypeAlternative)
	return m
}

// Attach appends an attachment. Inline attachments without a content id get
// one derived from the filename.
func (m *Message) Attach(a *Attachment) *Message {
	if a.Disposition == "" {
		a.Disposition = DispositionAttachment
	}
	if a.Disposition == DispositionInline && a.ContentID == "" {
		a.ContentID = a.Filename
	}
	m.addChild(a, ContentTypeMixed)
	return m
}

// Embed attaches a as an inline part and returns the cid: reference to use
// in HTML content.
func (m *Message) Embed(a *Attachment) string {
	a.Disposition = DispositionInline
	m.Attach(a)
	return "cid:" + a.ContentID
}

func (m *Message) addChild(p Part, container string) {
	m.Children = append(m.Children, p)
	if m.originalContentType == "" && !strings.HasPrefix(m.ContentType, "multipart/") {
		m.originalContentType = m.ContentType
	}
	if !strings.HasPrefix(m.ContentType, "multipart/") || container == ContentTypeMixed {
		m.ContentType = container
	}
}

func addAddress(list []Address, addr, name string) []Address {
	for i := range list {
		if list[i].Email == addr {
			list[i].Name = name
			return list
		}
	}
	return append(list, Address{Email: addr, Name: name})
}
