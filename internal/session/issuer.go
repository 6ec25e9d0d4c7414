package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authflow-app/authflow/internal/auth"
	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/models"
	"github.com/authflow-app/authflow/internal/security"
	"github.com/authflow-app/authflow/internal/store"
)

// ErrSecondFactorRequired blocks sign-in when a two-factor user has no
// confirmation marker on record.
var ErrSecondFactorRequired = errors.New("session: second factor not confirmed")

// Issuer establishes sessions as signed JWTs. It is the final gate of the
// login flow: for two-factor users it consumes the confirmation marker
// exactly once, and refuses to sign in without it.
type Issuer struct {
	tokens *store.Tokens
	jwtCfg config.JWTConfig
}

// NewIssuer constructs an Issuer.
func NewIssuer(tokens *store.Tokens, jwtCfg config.JWTConfig) *Issuer {
	return &Issuer{tokens: tokens, jwtCfg: jwtCfg}
}

// SignIn issues a session token for the user.
func (i *Issuer) SignIn(ctx context.Context, user *models.User) (auth.Session, error) {
	if user == nil {
		return auth.Session{}, fmt.Errorf("session: nil user")
	}

	if user.TwoFactorEnabled {
		won, errConsume := i.tokens.ConsumeConfirmation(ctx, user.ID)
		if errConsume != nil {
			return auth.Session{}, fmt.Errorf("session: consume confirmation: %w", errConsume)
		}
		if !won {
			return auth.Session{}, ErrSecondFactorRequired
		}
	}

	token, errIssue := security.IssueSessionToken(i.jwtCfg.Secret, user.ID, user.Username, i.jwtCfg.Expiry)
	if errIssue != nil {
		return auth.Session{}, errIssue
	}
	return auth.Session{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(i.jwtCfg.Expiry),
	}, nil
}
