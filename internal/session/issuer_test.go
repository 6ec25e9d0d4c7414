package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/db"
	"github.com/authflow-app/authflow/internal/models"
	"github.com/authflow-app/authflow/internal/security"
	"github.com/authflow-app/authflow/internal/store"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "authflow-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestSignIn_PlainUser(t *testing.T) {
	conn := openTestDB(t)
	tokens := store.NewTokens(conn)
	issuer := NewIssuer(tokens, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})

	user := &models.User{ID: 1, Username: "alice"}
	sess, err := issuer.SignIn(context.Background(), user)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	claims, errParse := security.ParseSessionToken("test-secret", sess.Token)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}
	if claims.UserID != 1 || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestSignIn_TwoFactorUserNeedsConfirmation(t *testing.T) {
	conn := openTestDB(t)
	tokens := store.NewTokens(conn)
	issuer := NewIssuer(tokens, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	ctx := context.Background()

	user := &models.User{ID: 7, Username: "alice", TwoFactorEnabled: true}

	if _, err := issuer.SignIn(ctx, user); !errors.Is(err, ErrSecondFactorRequired) {
		t.Fatalf("expected second factor gate, got %v", err)
	}

	if errConfirm := tokens.CreateConfirmation(ctx, user.ID); errConfirm != nil {
		t.Fatalf("create confirmation: %v", errConfirm)
	}
	sess, errSignIn := issuer.SignIn(ctx, user)
	if errSignIn != nil {
		t.Fatalf("sign in with confirmation: %v", errSignIn)
	}
	if sess.Token == "" {
		t.Fatalf("expected a session token")
	}

	// The marker is consumed by issuance; a second sign-in is gated again.
	if _, errAgain := issuer.SignIn(ctx, user); !errors.Is(errAgain, ErrSecondFactorRequired) {
		t.Fatalf("expected consumed marker to gate sign-in, got %v", errAgain)
	}
}
