package mail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gomail "github.com/wneessen/go-mail"

	"github.com/bideshstudy/admission-api/config"
	"github.com/bideshstudy/admission-api/internal/types"
)

// Sender delivers transactional mail. Flows treat a failed send as a
// synchronous error; there are no retries or queues behind this interface.
type Sender interface {
	SendVerificationOTP(ctx context.Context, to, otp string) error
	SendPasswordResetOTP(ctx context.Context, to, otp string) error
}

var _ Sender = (*SMTPSender)(nil)

// SMTPSender sends mail through a single lazily-constructed SMTP client.
// The client is built on first use and reused for the process lifetime.
type SMTPSender struct {
	cfg    config.Config
	logger *slog.Logger

	once    sync.Once
	client  *gomail.Client
	initErr error
}

func NewSMTPSender(cfg config.Config, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

func (s *SMTPSender) getClient() (*gomail.Client, error) {
	s.once.Do(func() {
		if s.cfg.SMTP.Username == "" || s.cfg.SMTP.Password == "" {
			s.initErr = fmt.Errorf("SMTP credentials are missing: set ADMISSION_SMTP_USERNAME and ADMISSION_SMTP_PASSWORD")
			return
		}
		client, err := gomail.NewClient(s.cfg.SMTP.Host,
			gomail.WithPort(s.cfg.SMTP.Port),
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.SMTP.Username),
			gomail.WithPassword(s.cfg.SMTP.Password),
			gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		)
		if err != nil {
			s.initErr = fmt.Errorf("failed to create SMTP client: %w", err)
			return
		}
		s.client = client
		s.logger.Info("SMTP client initialized", slog.String("host", s.cfg.SMTP.Host), slog.Int("port", s.cfg.SMTP.Port))
	})
	return s.client, s.initErr
}

func (s *SMTPSender) send(ctx context.Context, to, subject, htmlBody string) error {
	client, err := s.getClient()
	if err != nil {
		return fmt.Errorf("%w: %s", types.ErrMailDelivery, err)
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat("BideshStudy", s.cfg.SMTP.From); err != nil {
		return fmt.Errorf("%w: invalid from address: %s", types.ErrMailDelivery, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: invalid recipient: %s", types.ErrMailDelivery, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send email",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %s", types.ErrMailDelivery, err)
	}
	return nil
}

// SendVerificationOTP mails the email-verification code.
func (s *SMTPSender) SendVerificationOTP(ctx context.Context, to, otp string) error {
	return s.send(ctx, to, "Email Verification OTP - BideshStudy", otpBody(
		"Thank you for registering with BideshStudy. To complete your registration and verify your email address, please use the following One-Time Password (OTP):",
		otp,
		"If you didn't request this verification code, please ignore this email.",
	))
}

// SendPasswordResetOTP mails the password-reset code.
func (s *SMTPSender) SendPasswordResetOTP(ctx context.Context, to, otp string) error {
	return s.send(ctx, to, "Password Reset OTP - BideshStudy", otpBody(
		"We received a request to reset your password for your BideshStudy account. To proceed, please use the following One-Time Password (OTP):",
		otp,
		"If you didn't request a password reset, please ignore this email. Your password will remain unchanged.",
	))
}

func otpBody(intro, otp, outro string) string {
	return fmt.Sprintf(`<html><body style="font-family: sans-serif; color: #333;">
<p>Hello,</p>
<p>%s</p>
<h2 style="letter-spacing: 8px; font-family: monospace;">%s</h2>
<p><strong>Important:</strong> This OTP will expire in <strong>10 minutes</strong>.</p>
<p style="color: #666; font-size: 13px;">%s</p>
<p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply to this message.</p>
</body></html>`, intro, otp, outro)
}
