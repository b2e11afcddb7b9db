package service

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/rs/zerolog"
)

var ErrEmailDisabled = errors.New("email delivery is disabled")
var ErrEmailNotConfigured = errors.New("SMTP settings are incomplete")

// EmailMessage is one outbound message, optionally with a single
// attachment (used for scheduled report delivery).
type EmailMessage struct {
	To             []string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

type EmailService struct {
	settingsRepo repository.SettingsRepository
	logger       zerolog.Logger
	timeout      time.Duration
}

func NewEmailService(settingsRepo repository.SettingsRepository, logger zerolog.Logger) *EmailService {
	return &EmailService{
		settingsRepo: settingsRepo,
		logger:       logger.With().Str("component", "email").Logger(),
		timeout:      30 * time.Second,
	}
}

func (s *EmailService) GetSettings(ctx context.Context) (*domain.EmailSettings, error) {
	return s.settingsRepo.GetEmailSettings(ctx)
}

func (s *EmailService) UpdateSettings(ctx context.Context, dto domain.EmailSettingsDTO) (*domain.EmailSettings, error) {
	settings, err := s.settingsRepo.GetEmailSettings(ctx)
	if err != nil {
		return nil, err
	}
	settings.SMTPHost = dto.SMTPHost
	settings.SMTPPort = dto.SMTPPort
	settings.Username = dto.Username
	if dto.Password != "" {
		settings.Password = dto.Password
	}
	settings.FromAddress = dto.FromAddress
	settings.FromName = dto.FromName
	if dto.UseTLS != nil {
		settings.UseTLS = *dto.UseTLS
	}
	if dto.Enabled != nil {
		settings.Enabled = *dto.Enabled
	}
	return s.settingsRepo.UpdateEmailSettings(ctx, settings)
}

// SendTest delivers a short message so admins can verify the SMTP setup.
func (s *EmailService) SendTest(ctx context.Context, recipient string) error {
	return s.Send(ctx, EmailMessage{
		To:      []string{recipient},
		Subject: "Parking reservation test email",
		Body:    "This is a test message. Your email settings are working.",
	})
}

func (s *EmailService) Send(ctx context.Context, msg EmailMessage) error {
	settings, err := s.settingsRepo.GetEmailSettings(ctx)
	if err != nil {
		return err
	}
	if !settings.Enabled {
		return ErrEmailDisabled
	}
	if settings.SMTPHost == "" || settings.FromAddress == "" {
		return ErrEmailNotConfigured
	}

	raw := buildMessage(settings, msg)
	if err := s.sendSMTP(ctx, settings, msg.To, raw); err != nil {
		s.logger.Warn().Err(err).Strs("to", msg.To).Msg("email delivery failed")
		return err
	}
	s.logger.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email delivered")
	return nil
}

const attachmentBoundary = "PARKINGRESERVEBOUNDARY"

func buildMessage(settings *domain.EmailSettings, msg EmailMessage) []byte {
	var b strings.Builder

	fromName := settings.FromName
	if fromName == "" {
		fromName = "Parking Reservations"
	}
	b.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, settings.FromAddress))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachment) == 0 {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.Body)
		return []byte(b.String())
	}

	b.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%s\r\n\r\n", attachmentBoundary))
	b.WriteString(fmt.Sprintf("--%s\r\n", attachmentBoundary))
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	b.WriteString(fmt.Sprintf("--%s\r\n", attachmentBoundary))
	b.WriteString("Content-Type: application/octet-stream\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", msg.AttachmentName))
	b.WriteString(encodeBase64Wrapped(msg.Attachment))
	b.WriteString(fmt.Sprintf("\r\n--%s--\r\n", attachmentBoundary))
	return []byte(b.String())
}

// encodeBase64Wrapped encodes with RFC 2045 line wrapping at 76 chars.
func encodeBase64Wrapped(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	return b.String()
}

// sendSMTP dials with a deadline, upgrades to TLS when configured, and
// authenticates only if credentials are present.
func (s *EmailService) sendSMTP(ctx context.Context, settings *domain.EmailSettings, recipients []string, raw []byte) error {
	addr := fmt.Sprintf("%s:%d", settings.SMTPHost, settings.SMTPPort)

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to SMTP server: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	client, err := smtp.NewClient(conn, settings.SMTPHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if settings.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("TLS required but %s does not offer STARTTLS", settings.SMTPHost)
		}
		if err := client.StartTLS(&tls.Config{ServerName: settings.SMTPHost}); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	if settings.Username != "" {
		auth := smtp.PlainAuth("", settings.Username, settings.Password, settings.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}

	if err := client.Mail(settings.FromAddress); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}
	return client.Quit()
}
