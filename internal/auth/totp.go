package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/models"
	"github.com/authflow-app/authflow/internal/store"
	"github.com/pquerna/otp/totp"
)

// TOTPEngine verifies time-based one-time codes against the secret stored
// on the user record.
type TOTPEngine struct {
	users  *store.Users
	issuer string
}

// NewTOTPEngine constructs a TOTPEngine.
func NewTOTPEngine(users *store.Users, issuer string) *TOTPEngine {
	if strings.TrimSpace(issuer) == "" {
		issuer = "AuthFlow"
	}
	return &TOTPEngine{users: users, issuer: issuer}
}

// Name returns the configured strategy name.
func (e *TOTPEngine) Name() string { return config.StrategyTOTP }

// IssueChallenge is a no-op: the authenticator app already has the secret.
func (e *TOTPEngine) IssueChallenge(_ context.Context, _ *models.User) error {
	return nil
}

// Verify validates the code against the stored secret. totp.Validate
// tolerates one 30-second step of clock skew in either direction.
func (e *TOTPEngine) Verify(_ context.Context, user *models.User, code string) error {
	if user.TwoFactorSecret == "" {
		return errInvalidCode()
	}
	if !totp.Validate(strings.TrimSpace(code), user.TwoFactorSecret) {
		return errInvalidCode()
	}
	return nil
}

// BeginEnrollment generates a fresh secret, stores it on the user record
// pending confirmation, and returns the provisioning URI for a QR code.
// TwoFactorEnabled stays false until a correct code confirms the secret.
func (e *TOTPEngine) BeginEnrollment(ctx context.Context, user *models.User) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	if errUpdate := e.users.Update(ctx, user.ID, map[string]any{
		"two_factor_secret": key.Secret(),
	}); errUpdate != nil {
		return nil, errUpdate
	}
	return &Enrollment{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}
