package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/models"
	"github.com/authflow-app/authflow/internal/security"
	"github.com/authflow-app/authflow/internal/store"
	log "github.com/sirupsen/logrus"
)

// Session is an established authenticated session.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// SessionIssuer finalizes sign-in. For users with a second factor enabled it
// consults and consumes the two-factor confirmation marker, rejecting
// sign-in when the marker is absent.
type SessionIssuer interface {
	SignIn(ctx context.Context, user *models.User) (Session, error)
}

// PasswordLogin is the first login step: credentials only.
type PasswordLogin struct {
	Email    string
	Password string
}

// SecondFactorLogin is the second login step: the one-time code.
type SecondFactorLogin struct {
	Email string
	Code  string
}

// SignupRequest carries new-account fields.
type SignupRequest struct {
	Email    string
	Username string
	Password string
}

// LoginResult is the outcome of a login step. Exactly one of
// TwoFactorRequired or Session is meaningful.
type LoginResult struct {
	TwoFactorRequired bool
	Session           *Session
}

// Authenticator orchestrates signup, login, lockout, second-factor
// verification, and password reset.
type Authenticator struct {
	users    *store.Users
	tokens   *store.Tokens
	engine   Engine
	notifier Notifier
	sessions SessionIssuer

	lockout  LockoutPolicy
	resetTTL time.Duration

	now func() time.Time
}

// New constructs an Authenticator from its collaborators and config.
func New(users *store.Users, tokens *store.Tokens, engine Engine, notifier Notifier, sessions SessionIssuer, cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		users:    users,
		tokens:   tokens,
		engine:   engine,
		notifier: notifier,
		sessions: sessions,
		lockout: LockoutPolicy{
			MaxAttempts: cfg.MaxLoginAttempts,
			Duration:    cfg.LockoutDuration,
		},
		resetTTL: cfg.ResetTokenTTL,
		now:      time.Now,
	}
}

// Signup creates an account, dispatches a welcome mail, and signs the new
// user in. Email verification is recorded immediately; there is no
// confirmation step.
func (a *Authenticator) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if !validEmail(req.Email) {
		return nil, errInvalidInput("Please enter a valid email address.")
	}
	if len(req.Username) < 3 {
		return nil, errInvalidInput("Username must be at least 3 characters.")
	}
	if len(req.Password) < 8 {
		return nil, errInvalidInput("Password must be at least 8 characters.")
	}

	hash, errHash := security.HashPassword(req.Password)
	if errHash != nil {
		log.WithError(errHash).Error("signup hash failed")
		return nil, errUnavailable()
	}

	now := a.now().UTC()
	user := models.User{
		Username:        req.Username,
		Email:           req.Email,
		Password:        hash,
		EmailVerifiedAt: &now,
	}
	if errCreate := a.users.Create(ctx, &user); errCreate != nil {
		if errors.Is(errCreate, store.ErrDuplicate) {
			return nil, errConflict("An account with this email or username already exists.")
		}
		log.WithError(errCreate).Error("signup create failed")
		return nil, errUnavailable()
	}

	a.notifier.SendWelcomeEmail(ctx, user.Email, user.Username)

	session, errSignIn := a.sessions.SignIn(ctx, &user)
	if errSignIn != nil {
		log.WithError(errSignIn).Error("signup sign-in failed")
		return nil, errUnavailable()
	}
	return &session, nil
}

// Login runs the password step. The checks short-circuit in a fixed order:
// lockout before password, password before any second-factor signal, so an
// unauthenticated caller never learns that 2FA is pending.
func (a *Authenticator) Login(ctx context.Context, req PasswordLogin) (*LoginResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if !validEmail(req.Email) || req.Password == "" {
		return nil, errInvalidInput("Invalid fields.")
	}

	user := a.users.FindByEmail(ctx, req.Email)
	if user == nil || user.Password == "" {
		// Same message as a wrong password: account existence stays hidden.
		return nil, errInvalidCredentials()
	}

	now := a.now().UTC()
	if errLocked := a.lockout.Check(user.LockedUntil, now); errLocked != nil {
		return nil, errLocked
	}

	if !security.CheckPassword(user.Password, req.Password) {
		return nil, a.recordFailure(ctx, user, now)
	}
	if update, dirty := a.lockout.OnSuccess(user.FailedLoginAttempts, user.LockedUntil); dirty {
		if errUpdate := a.users.Update(ctx, user.ID, map[string]any{
			"failed_login_attempts": update.FailedAttempts,
			"locked_until":          update.LockedUntil,
		}); errUpdate != nil {
			log.WithError(errUpdate).Error("reset failed attempts failed")
		}
	}

	if user.TwoFactorEnabled {
		if errIssue := a.engine.IssueChallenge(ctx, user); errIssue != nil {
			return nil, errIssue
		}
		return &LoginResult{TwoFactorRequired: true}, nil
	}

	session, errSignIn := a.sessions.SignIn(ctx, user)
	if errSignIn != nil {
		log.WithError(errSignIn).Error("sign-in failed")
		return nil, errUnavailable()
	}
	return &LoginResult{Session: &session}, nil
}

// LoginSecondFactor runs the code step. The confirmation marker recorded on
// success is the trust anchor consumed by session issuance; the password is
// not re-verified here.
func (a *Authenticator) LoginSecondFactor(ctx context.Context, req SecondFactorLogin) (*LoginResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if !validEmail(req.Email) || req.Code == "" {
		return nil, errInvalidInput("Invalid fields.")
	}

	user := a.users.FindByEmail(ctx, req.Email)
	if user == nil {
		return nil, errInvalidCredentials()
	}

	now := a.now().UTC()
	if errLocked := a.lockout.Check(user.LockedUntil, now); errLocked != nil {
		return nil, errLocked
	}
	if !user.TwoFactorEnabled {
		return nil, errInvalidCode()
	}

	if errVerify := a.engine.Verify(ctx, user, req.Code); errVerify != nil {
		return nil, errVerify
	}

	if errConfirm := a.tokens.CreateConfirmation(ctx, user.ID); errConfirm != nil {
		log.WithError(errConfirm).Error("record confirmation failed")
		return nil, errUnavailable()
	}

	session, errSignIn := a.sessions.SignIn(ctx, user)
	if errSignIn != nil {
		log.WithError(errSignIn).Error("second factor sign-in failed")
		return nil, errUnavailable()
	}
	return &LoginResult{Session: &session}, nil
}

// recordFailure persists the incremented counter and returns the failure
// the caller should see. The lock message surfaces only once the threshold
// is crossed on this very attempt.
func (a *Authenticator) recordFailure(ctx context.Context, user *models.User, now time.Time) error {
	update := a.lockout.OnFailure(user.FailedLoginAttempts, now)
	if errUpdate := a.users.Update(ctx, user.ID, map[string]any{
		"failed_login_attempts": update.FailedAttempts,
		"locked_until":          update.LockedUntil,
	}); errUpdate != nil {
		log.WithError(errUpdate).Error("record failed attempt failed")
	}
	if update.LockedUntil != nil {
		return errAccountLocked(*update.LockedUntil)
	}
	return errInvalidCredentials()
}

// validEmail reports whether the address parses as a bare RFC 5322 address.
func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
