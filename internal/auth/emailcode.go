package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/models"
	"github.com/authflow-app/authflow/internal/security"
	"github.com/authflow-app/authflow/internal/store"
)

// EmailCodeEngine issues random numeric codes delivered by mail. At most one
// live code exists per email; issuing a new one replaces the previous.
type EmailCodeEngine struct {
	tokens   *store.Tokens
	notifier Notifier

	ttl     time.Duration
	codeLen int

	now func() time.Time
}

// NewEmailCodeEngine constructs an EmailCodeEngine.
func NewEmailCodeEngine(tokens *store.Tokens, notifier Notifier, ttl time.Duration, codeLen int) *EmailCodeEngine {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if codeLen <= 0 {
		codeLen = 6
	}
	return &EmailCodeEngine{
		tokens:   tokens,
		notifier: notifier,
		ttl:      ttl,
		codeLen:  codeLen,
		now:      time.Now,
	}
}

// Name returns the configured strategy name.
func (e *EmailCodeEngine) Name() string { return config.StrategyEmailCode }

// IssueChallenge generates a fresh code for the email and dispatches it.
func (e *EmailCodeEngine) IssueChallenge(ctx context.Context, user *models.User) error {
	return e.issue(ctx, user.Email)
}

// Verify redeems the submitted code. An expired code fails with CodeExpired
// and a replacement is issued and sent, so the user can simply retry.
func (e *EmailCodeEngine) Verify(ctx context.Context, user *models.User, code string) error {
	record := e.tokens.FindTwoFactorToken(ctx, user.Email)
	if record == nil {
		return errInvalidCode()
	}
	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		return errInvalidCode()
	}
	if e.now().UTC().After(record.ExpiresAt) {
		if errReissue := e.issue(ctx, user.Email); errReissue != nil {
			return errReissue
		}
		return errCodeExpired()
	}
	won, errConsume := e.tokens.ConsumeTwoFactorToken(ctx, record.ID)
	if errConsume != nil {
		return errUnavailable()
	}
	if !won {
		// A concurrent redemption consumed the code first.
		return errInvalidCode()
	}
	return nil
}

// BeginEnrollment dispatches a code the user must echo back to enable 2FA.
func (e *EmailCodeEngine) BeginEnrollment(ctx context.Context, user *models.User) (*Enrollment, error) {
	if err := e.issue(ctx, user.Email); err != nil {
		return nil, err
	}
	return &Enrollment{CodeSent: true}, nil
}

// issue replaces any live code for the email and sends the new one.
func (e *EmailCodeEngine) issue(ctx context.Context, email string) error {
	code, errCode := security.GenerateNumericCode(e.codeLen)
	if errCode != nil {
		return errUnavailable()
	}
	expiresAt := e.now().UTC().Add(e.ttl)
	if errReplace := e.tokens.ReplaceTwoFactorToken(ctx, email, code, expiresAt); errReplace != nil {
		return errUnavailable()
	}
	e.notifier.SendTwoFactorCode(ctx, email, code)
	return nil
}
