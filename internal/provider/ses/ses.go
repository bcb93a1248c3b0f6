// Package ses implements a Provider that sends emails via AWS SES v2.
package ses

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/mailjet-transport/internal/email"
	"github.com/shineum/mailjet-transport/internal/payload"
	"github.com/shineum/mailjet-transport/internal/provider"
)

// SESProviderConfig holds the configuration for creating a SESProvider.
type SESProviderConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Sender overrides the message From address when set.
	Sender string
}

// SESProvider sends emails via the AWS SES v2 API. Each message is sent
// with a single SendEmail call.
type SESProvider struct {
	sender string
	client SendEmailAPI
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new SESProvider with the given configuration.
func New(ctx context.Context, cfg SESProviderConfig) (*SESProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(cfg.Sender, sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a SESProvider with a custom client, used for testing.
func NewWithClient(sender string, client SendEmailAPI) *SESProvider {
	return &SESProvider{
		sender: sender,
		client: client,
	}
}

// Send delivers an email message via AWS SES v2.
// Messages with attachments are sent as raw MIME, others in the SES simple
// format.
func (s *SESProvider) Send(ctx context.Context, msg *email.Message) error {
	sender := s.from(msg)
	content := payload.Collect(msg)

	var input *sesv2.SendEmailInput
	if len(content.Attachments) > 0 || len(content.Inline) > 0 {
		raw, err := buildRawMessage(sender, msg, content)
		if err != nil {
			return fmt.Errorf("failed to build raw message: %w", err)
		}
		input = &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(sender),
			Destination:      destination(msg),
			Content: &types.EmailContent{
				Raw: &types.RawMessage{
					Data: raw,
				},
			},
		}
	} else {
		input = buildSimpleInput(sender, msg, content)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("SES API request failed: %w", err)
	}

	var messageID string
	if out != nil {
		messageID = aws.ToString(out.MessageId)
	}
	slog.Info("email sent via SES",
		"message_id", messageID,
		"recipients", len(msg.To)+len(msg.Cc)+len(msg.Bcc),
	)
	return nil
}

// Name returns the provider name.
func (s *SESProvider) Name() string {
	return "ses"
}

func (s *SESProvider) from(msg *email.Message) string {
	if s.sender != "" {
		return s.sender
	}
	return provider.FormatAddress(msg.From)
}

// userHeaders returns the X- headers of msg in a stable order.
func userHeaders(msg *email.Message) []email.Header {
	var out []email.Header
	for _, h := range msg.Headers().All() {
		if strings.HasPrefix(h.Name, "X-") {
			out = append(out, h)
		}
	}
	return out
}

// destination lists every recipient of msg. Bcc recipients only travel here,
// never in message headers.
func destination(msg *email.Message) *types.Destination {
	return &types.Destination{
		ToAddresses:  provider.FormatAddresses(msg.To),
		CcAddresses:  provider.FormatAddresses(msg.Cc),
		BccAddresses: provider.FormatAddresses(msg.Bcc),
	}
}

// buildSimpleInput creates a SES SendEmailInput for emails without attachments.
func buildSimpleInput(sender string, msg *email.Message, content payload.Content) *sesv2.SendEmailInput {
	body := &types.Body{}

	if content.HTML != "" {
		body.Html = &types.Content{
			Data:    aws.String(content.HTML),
			Charset: aws.String("UTF-8"),
		}
	}
	if content.Text != "" {
		body.Text = &types.Content{
			Data:    aws.String(content.Text),
			Charset: aws.String("UTF-8"),
		}
	}

	simple := &types.Message{
		Subject: &types.Content{
			Data:    aws.String(msg.Subject),
			Charset: aws.String("UTF-8"),
		},
		Body: body,
	}
	for _, h := range userHeaders(msg) {
		simple.Headers = append(simple.Headers, types.MessageHeader{
			Name:  aws.String(h.Name),
			Value: aws.String(h.String()),
		})
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(sender),
		Destination:      destination(msg),
		Content:          &types.EmailContent{Simple: simple},
	}
	if msg.ReplyTo != nil {
		input.ReplyToAddresses = []string{provider.FormatAddress(*msg.ReplyTo)}
	}
	return input
}

// buildRawMessage constructs a raw MIME message for emails with attachments.
// Inline parts carry their Content-ID so cid: references resolve. Bcc is left
// out of the headers; recipients are passed in the input Destination.
func buildRawMessage(sender string, msg *email.Message, content payload.Content) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", sender)
	if len(msg.To) > 0 {
		fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(provider.FormatAddresses(msg.To), ", "))
	}
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(provider.FormatAddresses(msg.Cc), ", "))
	}
	if msg.ReplyTo != nil {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", provider.FormatAddress(*msg.ReplyTo))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	for _, h := range userHeaders(msg) {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.String())
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := make(textproto.MIMEHeader)
	switch {
	case content.HTML != "":
		bodyHeader.Set("Content-Type", "text/html; charset=UTF-8")
		part, err := writer.CreatePart(bodyHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create body part: %w", err)
		}
		part.Write([]byte(content.HTML))
	case content.Text != "":
		bodyHeader.Set("Content-Type", "text/plain; charset=UTF-8")
		part, err := writer.CreatePart(bodyHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create body part: %w", err)
		}
		part.Write([]byte(content.Text))
	}

	for _, att := range content.Attachments {
		if err := writeAttachment(writer, att, email.DispositionAttachment); err != nil {
			return nil, err
		}
	}
	for _, att := range content.Inline {
		if err := writeAttachment(writer, att, email.DispositionInline); err != nil {
			return nil, err
		}
	}

	writer.Close()
	return buf.Bytes(), nil
}

func writeAttachment(writer *multipart.Writer, att payload.EncodedAttachment, disposition string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", att.ContentType)
	header.Set("Content-Transfer-Encoding", "base64")
	header.Set("Content-Disposition",
		fmt.Sprintf("%s; filename=%s", disposition, mime.QEncoding.Encode("UTF-8", att.Filename)))
	if disposition == email.DispositionInline && att.ContentID != "" {
		header.Set("Content-ID", "<"+att.ContentID+">")
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create attachment part: %w", err)
	}
	_, err = part.Write([]byte(wrapBase64(att.Base64Content)))
	return err
}

// wrapBase64 breaks an encoded string into 76-character lines per RFC 2045.
func wrapBase64(encoded string) string {
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
