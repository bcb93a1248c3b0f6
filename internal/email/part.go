package email

// Attachment dispositions.
const (
	DispositionAttachment = "attachment"
	DispositionInline     = "inline"
)

// Part is a child entity of a Message: either a *BodyPart or an *Attachment.
type Part interface {
	MediaType() string
}

// BodyPart is an alternative textual representation of the message body.
type BodyPart struct {
	ContentType string
	Content     string
}

// MediaType returns the part content type.
func (p *BodyPart) MediaType() string { return p.ContentType }

// Attachment represents a file attached to an email message. Inline
// attachments are referenced from HTML content through their ContentID.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
	Disposition string
	ContentID   string
}

// MediaType returns the attachment content type.
func (a *Attachment) MediaType() string { return a.ContentType }

// IsInline reports whether the attachment is embedded in the body.
func (a *Attachment) IsInline() bool { return a.Disposition == DispositionInline }
