package mailer

import (
	"context"
	"fmt"

	"github.com/authflow-app/authflow/internal/config"
	"github.com/resend/resend-go/v3"
	log "github.com/sirupsen/logrus"
)

// ResendMailer dispatches transactional mail through Resend. Sends are best
// effort: failures are logged and never propagated to the auth flow.
type ResendMailer struct {
	client *resend.Client
	from   string
	appURL string
}

// NewResendMailer constructs a ResendMailer.
func NewResendMailer(cfg config.MailConfig) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.From,
		appURL: cfg.AppURL,
	}
}

// SendPasswordResetEmail mails the reset link for the token.
func (m *ResendMailer) SendPasswordResetEmail(ctx context.Context, email, token string) {
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", m.appURL, token)
	m.send(ctx, email, "Reset your password",
		fmt.Sprintf(`<p>Click <a href="%s">here</a> to reset your password.</p>`, resetLink))
}

// SendWelcomeEmail mails the post-signup greeting.
func (m *ResendMailer) SendWelcomeEmail(ctx context.Context, email, username string) {
	m.send(ctx, email, "Welcome to AuthFlow!",
		fmt.Sprintf(`<p>Hi %s,</p><p>Welcome to AuthFlow! We're excited to have you on board.</p>`, username))
}

// SendTwoFactorCode mails a one-time login code.
func (m *ResendMailer) SendTwoFactorCode(ctx context.Context, email, code string) {
	m.send(ctx, email, "Your two-factor authentication code",
		fmt.Sprintf(`<p>Your 2FA code: %s</p><p>It expires in 5 minutes.</p>`, code))
}

func (m *ResendMailer) send(ctx context.Context, to, subject, html string) {
	if m.from == "" {
		log.Warn("mail from address not configured, dropping message")
		return
	}
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		log.WithError(err).WithField("subject", subject).Error("send mail failed")
	}
}

// LogMailer logs mail instead of sending it. Used when no API key is
// configured, and in tests.
type LogMailer struct{}

// SendPasswordResetEmail logs the reset dispatch.
func (LogMailer) SendPasswordResetEmail(_ context.Context, email, _ string) {
	log.WithField("email", email).Info("password reset mail (log only)")
}

// SendWelcomeEmail logs the welcome dispatch.
func (LogMailer) SendWelcomeEmail(_ context.Context, email, _ string) {
	log.WithField("email", email).Info("welcome mail (log only)")
}

// SendTwoFactorCode logs the code dispatch.
func (LogMailer) SendTwoFactorCode(_ context.Context, email, _ string) {
	log.WithField("email", email).Info("two factor code mail (log only)")
}
