// internal/provider/email.go
package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"time"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

// SMTPClient delivers email through a plain SMTP relay. The credential's
// client_id/client_secret fields double as username/password; account_id holds
// "host:port".
type SMTPClient struct{}

func (c *SMTPClient) Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	addr := cred.AccountID
	auth := smtp.PlainAuth("", cred.ClientID, cred.ClientSecret, hostOf(addr))

	raw := buildMIME(msg)
	if err := smtp.SendMail(addr, auth, msg.From, []string{msg.To}, raw); err != nil {
		return "", err
	}
	// SMTP has no provider message id; synthesize one from the submit time.
	return fmt.Sprintf("smtp-%d", time.Now().UnixNano()), nil
}

// Probe opens and closes a connection, which is enough to prove the relay is
// reachable and the credential shape is usable.
func (c *SMTPClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	client, err := smtp.Dial(cred.AccountID)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Noop()
}

func hostOf(addr string) string {
	for i := range addr {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}

// buildMIME assembles a multipart message when attachments are present, a
// plain HTML body otherwise.
func buildMIME(msg Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		buf.WriteString(msg.Body)
		return buf.Bytes()
	}

	const boundary = "dispatch-mime-boundary"
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	buf.WriteString(msg.Body)
	buf.WriteString("\r\n")

	for _, a := range msg.Attachments {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s\r\n", a.MIME)
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n", a.FileName)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		buf.WriteString(base64.StdEncoding.EncodeToString(a.Data))
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

var _ Client = (*SMTPClient)(nil)
