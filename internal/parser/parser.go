// Package parser reads RFC 5322 messages with MIME multipart bodies into the
// email.Message model consumed by the transport.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"sort"
	"strings"

	"github.com/shineum/mailjet-transport/internal/email"
	"github.com/shineum/mailjet-transport/internal/payload"
)

// structuralHeaders are mapped onto Message fields and not copied into the
// header set.
var structuralHeaders = map[string]bool{
	"From":                      true,
	"To":                        true,
	"Cc":                        true,
	"Bcc":                       true,
	"Reply-To":                  true,
	"Subject":                   true,
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
	"Mime-Version":              true,
}

// headerNames maps canonicalized names back to the documented casing of the
// provider headers, which are matched exactly downstream.
var headerNames = func() map[string]string {
	names := make(map[string]string)
	for _, table := range []payload.HeaderTable{payload.V3HeaderTable(), payload.V31HeaderTable()} {
		for _, m := range table {
			names[textproto.CanonicalMIMEHeaderKey(m.Header)] = m.Header
		}
	}
	return names
}()

var wordDecoder = new(mime.WordDecoder)

// collected accumulates the body and child parts found while walking the
// MIME tree.
type collected struct {
	primary  *email.BodyPart
	children []email.Part
}

func (c *collected) addText(mediaType, content string) {
	if c.primary == nil {
		c.primary = &email.BodyPart{ContentType: mediaType, Content: content}
		return
	}
	c.children = append(c.children, &email.BodyPart{ContentType: mediaType, Content: content})
}

// Parse parses a raw RFC 5322 message. The first text part becomes the
// primary body; later text parts become alternative parts. Unrecognized
// MIME parts are logged and skipped.
func Parse(raw []byte) (*email.Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &email.Message{Subject: decodeHeader(msg.Header.Get("Subject"))}

	if from := parseAddressList(msg.Header.Get("From")); len(from) > 0 {
		result.From = from[0]
	}
	for _, a := range parseAddressList(msg.Header.Get("To")) {
		result.AddTo(a.Email, a.Name)
	}
	for _, a := range parseAddressList(msg.Header.Get("Cc")) {
		result.AddCc(a.Email, a.Name)
	}
	for _, a := range parseAddressList(msg.Header.Get("Bcc")) {
		result.AddBcc(a.Email, a.Name)
	}
	if replyTo := parseAddressList(msg.Header.Get("Reply-To")); len(replyTo) > 0 {
		result.SetReplyTo(replyTo[0].Email, replyTo[0].Name)
	}
	copyHeaders(msg.Header, result.Headers())

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = email.ContentTypeText
	}
	encoding := msg.Header.Get("Content-Transfer-Encoding")

	var c collected
	mediaType, params, err := mime.ParseMediaType(contentType)
	switch {
	case err != nil:
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		body, readErr := readContent(msg.Body, encoding)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read message body: %w", readErr)
		}
		c.addText(email.ContentTypeText, string(body))

	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := parseMultipart(msg.Body, boundary, &c); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}

	default:
		body, err := readContent(msg.Body, encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to read message body: %w", err)
		}
		if !payload.SupportsContentType(mediaType) {
			slog.Warn("unrecognized top-level content type",
				"content_type", mediaType,
			)
			mediaType = email.ContentTypeText
		}
		c.addText(mediaType, string(body))
	}

	if c.primary != nil {
		result.SetBody(c.primary.Content, c.primary.ContentType)
	} else {
		result.SetBody("", email.ContentTypeText)
	}
	for _, child := range c.children {
		switch p := child.(type) {
		case *email.BodyPart:
			result.AddPart(p.Content, p.ContentType)
		case *email.Attachment:
			result.Attach(p)
		}
	}

	return result, nil
}

// parseMultipart walks a multipart body, descending into nested multiparts.
func parseMultipart(body io.Reader, boundary string, c *collected) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = email.ContentTypeText
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			nestedBoundary := params["boundary"]
			if nestedBoundary == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := parseMultipart(part, nestedBoundary, c); err != nil {
				slog.Warn("failed to parse nested multipart",
					"error", err,
				)
			}
			continue
		}

		content, err := readContent(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		disposition, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		contentID := strings.Trim(part.Header.Get("Content-Id"), "<> ")

		switch {
		case disposition == email.DispositionAttachment:
			c.children = append(c.children, &email.Attachment{
				Filename:    extractFilename(part, params, mediaType),
				ContentType: mediaType,
				Content:     content,
				Disposition: email.DispositionAttachment,
			})
		case payload.SupportsContentType(mediaType):
			c.addText(mediaType, string(content))
		case contentID != "" || disposition == email.DispositionInline:
			c.children = append(c.children, &email.Attachment{
				Filename:    extractFilename(part, params, mediaType),
				ContentType: mediaType,
				Content:     content,
				Disposition: email.DispositionInline,
				ContentID:   contentID,
			})
		case part.FileName() != "" || params["name"] != "":
			c.children = append(c.children, &email.Attachment{
				Filename:    extractFilename(part, params, mediaType),
				ContentType: mediaType,
				Content:     content,
				Disposition: email.DispositionAttachment,
			})
		default:
			slog.Warn("unrecognized MIME part, skipping",
				"content_type", mediaType,
				"disposition", disposition,
			)
		}
	}

	return nil
}

// readContent reads r and undoes its Content-Transfer-Encoding. The multipart
// reader already decodes quoted-printable parts and drops the header.
func readContent(r io.Reader, encoding string) ([]byte, error) {
	encoding = strings.ToLower(strings.TrimSpace(encoding))
	if encoding == "quoted-printable" {
		r = quotedprintable.NewReader(r)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if encoding != "base64" {
		return raw, nil
	}
	cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 content: %w", err)
		}
	}
	return decoded, nil
}

// extractFilename checks Content-Disposition, then the Content-Type name
// parameter, and finally derives a name from the media type.
func extractFilename(part *multipart.Part, params map[string]string, mediaType string) string {
	if fn := part.FileName(); fn != "" {
		return fn
	}
	if name := params["name"]; name != "" {
		return name
	}
	if _, sub, ok := strings.Cut(mediaType, "/"); ok {
		return "attachment." + sub
	}
	return "attachment"
}

// copyHeaders copies non-structural headers in name order. Only the first
// value of a repeated header is kept.
func copyHeaders(h mail.Header, dst *email.HeaderSet) {
	keys := make([]string, 0, len(h))
	for key := range h {
		if !structuralHeaders[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := key
		if documented, ok := headerNames[key]; ok {
			name = documented
		}
		dst.Add(name, decodeHeader(h[key][0]))
	}
}

func decodeHeader(v string) string {
	decoded, err := wordDecoder.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

// parseAddressList parses an RFC 5322 address list, keeping display names.
func parseAddressList(raw string) []email.Address {
	if raw == "" {
		return nil
	}

	addresses, err := mail.ParseAddressList(raw)
	if err != nil {
		// Fall back to simple comma split if RFC 5322 parsing fails
		var result []email.Address
		for _, p := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, email.Address{Email: trimmed})
			}
		}
		return result
	}

	result := make([]email.Address, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, email.Address{Email: addr.Address, Name: addr.Name})
	}
	return result
}
