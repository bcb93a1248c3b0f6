package payload

import (
	"encoding/base64"

	"github.com/shineum/mailjet-transport/internal/email"
)

// SupportsContentType reports whether ct can carry the primary body.
func SupportsContentType(ct string) bool {
	return ct == email.ContentTypeText || ct == email.ContentTypeHTML
}

// PrimaryContentType returns the content type governing the message's main
// body. Once children are attached the declared type is a multipart
// container, so the caller's original type is used instead. The result may
// be unsupported (or empty) when neither value is a text type.
func PrimaryContentType(msg *email.Message) string {
	if SupportsContentType(msg.ContentType) {
		return msg.ContentType
	}
	return msg.OriginalContentType()
}

// EncodedAttachment is a child attachment with its content base64 encoded.
type EncodedAttachment struct {
	ContentType   string
	Filename      string
	ContentID     string
	Base64Content string
}

// Content holds the resolved body representations and the attachments of a
// message, in child declaration order.
type Content struct {
	HTML        string
	Text        string
	Attachments []EncodedAttachment
	Inline      []EncodedAttachment
}

// Collect walks the message children once. The primary body lands in Text
// for text/plain and in HTML otherwise; text/plain and text/html children
// then override it, last one winning. Attachments are split by disposition.
func Collect(msg *email.Message) Content {
	var c Content
	if PrimaryContentType(msg) == email.ContentTypeText {
		c.Text = msg.Body
	} else {
		c.HTML = msg.Body
	}

	for _, child := range msg.Children {
		switch p := child.(type) {
		case *email.Attachment:
			enc := EncodedAttachment{
				ContentType:   p.ContentType,
				Filename:      p.Filename,
				ContentID:     p.ContentID,
				Base64Content: base64.StdEncoding.EncodeToString(p.Content),
			}
			switch p.Disposition {
			case email.DispositionAttachment:
				c.Attachments = append(c.Attachments, enc)
			case email.DispositionInline:
				c.Inline = append(c.Inline, enc)
			}
		case *email.BodyPart:
			switch p.ContentType {
			case email.ContentTypeHTML:
				c.HTML = p.Content
			case email.ContentTypeText:
				c.Text = p.Content
			}
		}
	}

	return c
}
