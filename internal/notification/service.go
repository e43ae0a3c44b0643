package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bher20/eimpactmanager/internal/storage"
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrNotConfigured is returned when no enabled email configuration exists.
const ErrNotConfigured = constError("email not configured or disabled")

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers a message with the given provider configuration.
type Transport interface {
	Send(ctx context.Context, cfg *storage.EmailConfig, msg Message) error
}

type Service struct {
	storage   storage.Storage
	transport Transport
}

// Option configures a Service.
type Option func(*Service)

// WithTransport replaces the provider dispatcher.
func WithTransport(t Transport) Option {
	return func(s *Service) { s.transport = t }
}

func NewService(s storage.Storage, opts ...Option) *Service {
	svc := &Service{storage: s, transport: ProviderTransport{}}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) GetConfig(ctx context.Context) (*storage.EmailConfig, error) {
	return s.storage.GetEmailConfig(ctx)
}

func (s *Service) SaveConfig(ctx context.Context, cfg storage.EmailConfig) error {
	if err := validateProvider(cfg.Provider); err != nil {
		return err
	}
	return s.storage.SaveEmailConfig(ctx, cfg)
}

// SendEmail delivers msg with the stored configuration.
func (s *Service) SendEmail(ctx context.Context, msg Message) error {
	cfg, err := s.storage.GetEmailConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled {
		return ErrNotConfigured
	}
	return s.transport.Send(ctx, cfg, msg)
}

// TestConfig sends a test message with cfg without saving it.
func (s *Service) TestConfig(ctx context.Context, cfg storage.EmailConfig, to string) error {
	if err := validateProvider(cfg.Provider); err != nil {
		return err
	}
	body := "This is a test email from eImpactManager."
	return s.transport.Send(ctx, &cfg, Message{To: to, Subject: "Test Email", HTML: body, Text: body})
}

// notify sends msg to user when they opted in. Failures are logged, not
// returned: a notification never fails the write that triggered it.
func (s *Service) notify(ctx context.Context, user *storage.User, msg Message) {
	if user == nil || !user.Notify || user.Email == "" {
		return
	}
	msg.To = user.Email
	if err := s.SendEmail(ctx, msg); err != nil {
		ev := log.Warn()
		if errors.Is(err, ErrNotConfigured) {
			ev = log.Debug()
		}
		ev.Err(err).Str("user", user.ID).Str("subject", msg.Subject).Msg("notification: email not sent")
		return
	}
	log.Info().Str("user", user.ID).Str("subject", msg.Subject).Msg("notification: email sent")
}

func validateProvider(p string) error {
	switch p {
	case "smtp", "gmail", "sendgrid", "resend":
		return nil
	}
	return fmt.Errorf("unknown provider: %s", p)
}
