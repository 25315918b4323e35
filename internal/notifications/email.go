package notifications

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SESAPI is the subset of the SESv2 client used by Mailer.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends raw MIME messages through Amazon SES.
type Mailer struct {
	client      SESAPI
	fromAddress string
	fromName    string
	logger      *zap.Logger
}

func NewMailer(client SESAPI, fromAddress, fromName string, logger *zap.Logger) *Mailer {
	return &Mailer{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		logger:      logger,
	}
}

func (m *Mailer) Send(ctx context.Context, delivery *EmailDelivery) error {
	if len(delivery.To) == 0 {
		return errors.New("no recipients specified")
	}

	m.logger.Info("Sending email",
		zap.Strings("to", delivery.To),
		zap.String("subject", delivery.Subject))

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.fromAddress),
		Destination:      &types.Destination{ToAddresses: delivery.To},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: m.buildMessage(delivery)},
		},
	})
	if err != nil {
		m.logger.Error("Failed to send email", zap.Error(err), zap.Strings("to", delivery.To))
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildMessage renders a multipart/mixed message with base64 attachments.
func (m *Mailer) buildMessage(delivery *EmailDelivery) []byte {
	var buf bytes.Buffer
	boundary := "----=_Part_" + uuid.NewString()

	from := m.fromAddress
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.fromName), m.fromAddress)
	}

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", delivery.To[0])
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", delivery.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(delivery.Attachments) == 0 {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(delivery.Body)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(delivery.Body)
	buf.WriteString("\r\n")

	for _, attachment := range delivery.Attachments {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s; name=\"%s\"\r\n", attachment.ContentType, attachment.Name)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", attachment.Name)
		writeBase64Lines(&buf, attachment.Data)
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

// writeBase64Lines wraps encoded data at 76 characters per RFC 2045.
func writeBase64Lines(buf *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")
}
