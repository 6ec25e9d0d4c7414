package auth

import (
	"context"
	"strings"

	"github.com/authflow-app/authflow/internal/security"
	log "github.com/sirupsen/logrus"
)

// ResetRequestMessage is returned whether or not the account exists.
const ResetRequestMessage = "If an account with this email exists, a reset link has been sent."

// RequestReset issues a reset token and dispatches it. An unknown email
// returns success unchanged, so the response never reveals account
// existence.
func (a *Authenticator) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return errInvalidInput("Please enter a valid email address.")
	}

	user := a.users.FindByEmail(ctx, email)
	if user == nil {
		return nil
	}

	token, errToken := security.GenerateRandomString(32)
	if errToken != nil {
		log.WithError(errToken).Error("generate reset token failed")
		return errUnavailable()
	}
	expiresAt := a.now().UTC().Add(a.resetTTL)
	if errCreate := a.tokens.CreatePasswordReset(ctx, user.ID, token, expiresAt); errCreate != nil {
		log.WithError(errCreate).Error("store reset token failed")
		return errUnavailable()
	}

	a.notifier.SendPasswordResetEmail(ctx, user.Email, token)
	return nil
}

// PerformReset redeems a reset token and sets the new password. The token
// is consumed with a conditional delete first, so concurrent redemptions of
// the same token yield exactly one success.
func (a *Authenticator) PerformReset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errInvalidToken()
	}
	if len(newPassword) < 8 {
		return errInvalidInput("Password must be at least 8 characters.")
	}

	record := a.tokens.FindPasswordReset(ctx, token)
	if record == nil {
		return errInvalidToken()
	}
	if a.now().UTC().After(record.ExpiresAt) {
		return errTokenExpired()
	}

	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		log.WithError(errHash).Error("reset hash failed")
		return errUnavailable()
	}

	won, errConsume := a.tokens.ConsumePasswordReset(ctx, record.ID)
	if errConsume != nil {
		log.WithError(errConsume).Error("consume reset token failed")
		return errUnavailable()
	}
	if !won {
		return errInvalidToken()
	}

	if errUpdate := a.users.Update(ctx, record.UserID, map[string]any{
		"password": hash,
	}); errUpdate != nil {
		log.WithError(errUpdate).Error("reset password update failed")
		return errUnavailable()
	}
	return nil
}
