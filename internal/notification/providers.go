package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bher20/eimpactmanager/internal/storage"
)

const resendURL = "https://api.resend.com/emails"

// ProviderTransport sends through SMTP (also Gmail), SendGrid or Resend,
// depending on cfg.Provider.
type ProviderTransport struct {
	HTTPClient *http.Client
}

func (t ProviderTransport) Send(ctx context.Context, cfg *storage.EmailConfig, msg Message) error {
	switch cfg.Provider {
	case "smtp", "gmail":
		return sendSMTP(cfg, msg)
	case "sendgrid":
		return sendSendgrid(cfg, msg)
	case "resend":
		return t.sendResend(ctx, cfg, msg)
	default:
		return fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

func smtpBody(cfg *storage.EmailConfig, msg Message) []byte {
	return []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
		"\r\n"+
		"%s\r\n", cfg.FromName, cfg.FromAddress, msg.To, msg.Subject, msg.HTML))
}

func sendSMTP(cfg *storage.EmailConfig, msg Message) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	body := smtpBody(cfg, msg)

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	switch cfg.Encryption {
	case "ssl":
		// Implicit TLS.
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
		if err != nil {
			return err
		}
		c, err := smtp.NewClient(conn, cfg.Host)
		if err != nil {
			conn.Close()
			return err
		}
		return deliver(c, auth, cfg.FromAddress, msg.To, body)
	case "tls":
		c, err := smtp.Dial(addr)
		if err != nil {
			return err
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				c.Close()
				return err
			}
		}
		return deliver(c, auth, cfg.FromAddress, msg.To, body)
	default:
		return smtp.SendMail(addr, auth, cfg.FromAddress, []string{msg.To}, body)
	}
}

func deliver(c *smtp.Client, auth smtp.Auth, from, to string, body []byte) error {
	defer c.Close()
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func sendSendgrid(cfg *storage.EmailConfig, msg Message) error {
	from := mail.NewEmail(cfg.FromName, cfg.FromAddress)
	to := mail.NewEmail("", msg.To)
	text := msg.Text
	if text == "" {
		text = msg.HTML
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, text, msg.HTML)
	resp, err := sendgrid.NewSendClient(cfg.APIKey).Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (t ProviderTransport) sendResend(ctx context.Context, cfg *storage.EmailConfig, msg Message) error {
	payload, err := json.Marshal(map[string]string{
		"from":    fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
		"text":    msg.Text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend error: %d %s", resp.StatusCode, string(b))
	}
	return nil
}
