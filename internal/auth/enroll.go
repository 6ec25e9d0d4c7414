package auth

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// TwoFactorStatus reports whether the user has a second factor enabled and
// which strategy this deployment runs.
func (a *Authenticator) TwoFactorStatus(ctx context.Context, userID uint64) (bool, string, error) {
	user := a.users.FindByID(ctx, userID)
	if user == nil {
		return false, "", errInvalidCredentials()
	}
	return user.TwoFactorEnabled, a.engine.Name(), nil
}

// BeginTwoFactorEnrollment starts enabling the second factor. TOTP returns
// a secret and provisioning URI; the email-code strategy dispatches a code.
func (a *Authenticator) BeginTwoFactorEnrollment(ctx context.Context, userID uint64) (*Enrollment, error) {
	user := a.users.FindByID(ctx, userID)
	if user == nil {
		return nil, errInvalidCredentials()
	}
	if user.TwoFactorEnabled {
		return nil, errConflict("Two-factor authentication is already enabled.")
	}
	enrollment, err := a.engine.BeginEnrollment(ctx, user)
	if err != nil {
		log.WithError(err).Error("begin two factor enrollment failed")
		return nil, errUnavailable()
	}
	return enrollment, nil
}

// ConfirmTwoFactorEnrollment verifies the submitted code and flips the
// enabled flag. The flag turns true only after a correct code confirms the
// pending secret or dispatched code.
func (a *Authenticator) ConfirmTwoFactorEnrollment(ctx context.Context, userID uint64, code string) error {
	user := a.users.FindByID(ctx, userID)
	if user == nil {
		return errInvalidCredentials()
	}
	if user.TwoFactorEnabled {
		return errConflict("Two-factor authentication is already enabled.")
	}
	if errVerify := a.engine.Verify(ctx, user, code); errVerify != nil {
		return errVerify
	}
	if errUpdate := a.users.Update(ctx, user.ID, map[string]any{
		"two_factor_enabled": true,
	}); errUpdate != nil {
		log.WithError(errUpdate).Error("enable two factor failed")
		return errUnavailable()
	}
	return nil
}

// DisableTwoFactor turns the second factor off and discards any secret and
// stale confirmation marker.
func (a *Authenticator) DisableTwoFactor(ctx context.Context, userID uint64) error {
	user := a.users.FindByID(ctx, userID)
	if user == nil {
		return errInvalidCredentials()
	}
	if errUpdate := a.users.Update(ctx, user.ID, map[string]any{
		"two_factor_enabled": false,
		"two_factor_secret":  "",
	}); errUpdate != nil {
		log.WithError(errUpdate).Error("disable two factor failed")
		return errUnavailable()
	}
	if _, errConsume := a.tokens.ConsumeConfirmation(ctx, user.ID); errConsume != nil {
		log.WithError(errConsume).Error("clear confirmation failed")
	}
	return nil
}
