// Package notify mails the exported brief to the operator as an attachment.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/mail"
	gosmtp "net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Subject  string // optional; defaults to a dated subject line
	Body     string // optional; defaults to a short cover line
}

type sendMailFunc func(addr string, auth gosmtp.Auth, from string, to []string, msg []byte) error

type Notifier struct {
	cfg      Config
	sendMail sendMailFunc
	logger   *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.Port < 1 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		cfg:      cfg,
		sendMail: gosmtp.SendMail,
		logger:   logger,
	}
}

// Send mails the file at attachmentPath to the configured recipient.
func (n *Notifier) Send(ctx context.Context, attachmentPath string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	host := strings.TrimSpace(n.cfg.Host)
	if host == "" {
		return fmt.Errorf("smtp host is not configured")
	}
	fromAddr, err := parseAddress(n.cfg.From)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	toAddr, err := parseAddress(n.cfg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	attachment, err := os.ReadFile(attachmentPath)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}

	subject := strings.TrimSpace(n.cfg.Subject)
	if subject == "" {
		subject = fmt.Sprintf("Docs of %s Mission", time.Now().Format("2006-01-02"))
	}
	body := strings.TrimSpace(n.cfg.Body)
	if body == "" {
		body = "Sensei, here is the file"
	}

	message, err := buildMessage(fromAddr, toAddr, subject, body, filepath.Base(attachmentPath), attachment)
	if err != nil {
		return fmt.Errorf("build mail message: %w", err)
	}

	var auth gosmtp.Auth
	if strings.TrimSpace(n.cfg.Username) != "" {
		if strings.TrimSpace(n.cfg.Password) == "" {
			return fmt.Errorf("smtp password is required when username is set")
		}
		auth = gosmtp.PlainAuth("", n.cfg.Username, n.cfg.Password, host)
	}
	serverAddress := host + ":" + strconv.Itoa(n.cfg.Port)
	if err := n.sendMail(serverAddress, auth, fromAddr, []string{toAddr}, message); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	n.logger.Info("brief mailed", "to", toAddr, "attachment", filepath.Base(attachmentPath), "bytes", len(attachment))
	return nil
}

// buildMessage assembles a multipart/mixed MIME message with a plain-text
// cover and one base64 attachment.
func buildMessage(from, to, subject, body, filename string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + sanitizeHeader(from),
		"To: " + sanitizeHeader(to),
		"Subject: " + sanitizeHeader(subject),
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="` + writer.Boundary() + `"`,
	}
	buf.WriteString(strings.Join(headers, "\r\n") + "\r\n\r\n")

	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=UTF-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(normalizeBody(body))); err != nil {
		return nil, err
	}

	attachmentPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`application/pdf; name="` + sanitizeHeader(filename) + `"`},
		"Content-Disposition":       {`attachment; filename="` + sanitizeHeader(filename) + `"`},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(attachmentPart, attachment); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 encodes data in RFC 2045 76-column lines.
func writeBase64(dst io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		chunk := encoded
		if len(chunk) > 76 {
			chunk = chunk[:76]
		}
		if _, err := dst.Write([]byte(chunk + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[len(chunk):]
	}
	return nil
}

func parseAddress(value string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	return parsed.Address, nil
}

func sanitizeHeader(value string) string {
	replacer := strings.NewReplacer("\r", " ", "\n", " ")
	return strings.TrimSpace(replacer.Replace(value))
}

func normalizeBody(value string) string {
	text := strings.ReplaceAll(value, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\n", "\r\n")
}
