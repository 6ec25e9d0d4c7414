package auth

import (
	"context"

	"github.com/authflow-app/authflow/internal/models"
)

// Notifier dispatches outbound mail. Delivery is best effort: failures are
// logged by implementations and never surfaced to the login caller.
type Notifier interface {
	SendPasswordResetEmail(ctx context.Context, email, token string)
	SendWelcomeEmail(ctx context.Context, email, username string)
	SendTwoFactorCode(ctx context.Context, email, code string)
}

// Enrollment describes what a client needs to finish enabling a second factor.
type Enrollment struct {
	// Secret and ProvisioningURI are set by the TOTP engine.
	Secret          string
	ProvisioningURI string
	// CodeSent is set by the email-code engine after dispatching a code.
	CodeSent bool
}

// Engine is the second-factor strategy. One variant is active per
// deployment: TOTP or emailed one-time codes.
type Engine interface {
	// Name returns the configured strategy name.
	Name() string

	// IssueChallenge prepares the second factor after a successful password
	// check. The email-code engine dispatches a fresh code; TOTP needs
	// nothing, the client already holds the secret.
	IssueChallenge(ctx context.Context, user *models.User) error

	// Verify checks a submitted code. On an expired emailed code it returns
	// CodeExpired and dispatches a replacement.
	Verify(ctx context.Context, user *models.User, code string) error

	// BeginEnrollment starts enabling the second factor for the user.
	BeginEnrollment(ctx context.Context, user *models.User) (*Enrollment, error)
}
