package auth_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/authflow-app/authflow/internal/auth"
	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/db"
	"github.com/authflow-app/authflow/internal/session"
	"github.com/authflow-app/authflow/internal/store"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"
)

// fakeNotifier captures outbound mail for assertions.
type fakeNotifier struct {
	mu          sync.Mutex
	resetTokens []string
	codes       []string
	welcomes    []string
}

func (n *fakeNotifier) SendPasswordResetEmail(_ context.Context, _ string, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetTokens = append(n.resetTokens, token)
}

func (n *fakeNotifier) SendWelcomeEmail(_ context.Context, _ string, username string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, username)
}

func (n *fakeNotifier) SendTwoFactorCode(_ context.Context, _ string, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, code)
}

func (n *fakeNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		t.Fatalf("expected a two-factor code to be sent")
	}
	return n.codes[len(n.codes)-1]
}

func (n *fakeNotifier) lastResetToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.resetTokens) == 0 {
		t.Fatalf("expected a reset token to be sent")
	}
	return n.resetTokens[len(n.resetTokens)-1]
}

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

type testEnv struct {
	auth     *auth.Authenticator
	users    *store.Users
	tokens   *store.Tokens
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T, strategy string) *testEnv {
	t.Helper()
	conn := openTestDB(t)
	users := store.NewUsers(conn)
	tokens := store.NewTokens(conn)
	notifier := &fakeNotifier{}
	cfg := config.DefaultAuthConfig()
	cfg.SecondFactor = strategy

	var engine auth.Engine
	if strategy == config.StrategyTOTP {
		engine = auth.NewTOTPEngine(users, "AuthFlow")
	} else {
		engine = auth.NewEmailCodeEngine(tokens, notifier, cfg.TwoFactorTokenTTL, cfg.TwoFactorCodeLen)
	}

	issuer := session.NewIssuer(tokens, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	return &testEnv{
		auth:     auth.New(users, tokens, engine, notifier, issuer, cfg),
		users:    users,
		tokens:   tokens,
		notifier: notifier,
	}
}

func (env *testEnv) signup(t *testing.T, email, username string) *auth.Session {
	t.Helper()
	sess, err := env.auth.Signup(context.Background(), auth.SignupRequest{
		Email:    email,
		Username: username,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return sess
}

func TestSignup_IssuesSessionAndWelcomeMail(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)

	sess := env.signup(t, "alice@example.com", "alice")
	if sess.Token == "" {
		t.Fatalf("expected a session token")
	}

	user := env.users.FindByEmail(context.Background(), "alice@example.com")
	if user == nil {
		t.Fatalf("expected user to exist")
	}
	if user.EmailVerifiedAt == nil {
		t.Fatalf("expected email verified at signup")
	}
	if len(env.notifier.welcomes) != 1 {
		t.Fatalf("expected one welcome mail, got %d", len(env.notifier.welcomes))
	}
}

func TestSignup_RejectsInvalidFields(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	ctx := context.Background()

	cases := []auth.SignupRequest{
		{Email: "not-an-email", Username: "alice", Password: "password123"},
		{Email: "alice@example.com", Username: "al", Password: "password123"},
		{Email: "alice@example.com", Username: "alice", Password: "short"},
	}
	for _, req := range cases {
		if _, err := env.auth.Signup(ctx, req); !auth.IsKind(err, auth.KindInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", req, err)
		}
	}
}

func TestSignup_DuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")

	_, err := env.auth.Signup(context.Background(), auth.SignupRequest{
		Email:    "alice@example.com",
		Username: "alice2",
		Password: "password123",
	})
	if !auth.IsKind(err, auth.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLogin_UnknownAccountAndWrongPasswordLookAlike(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	ctx := context.Background()

	_, errUnknown := env.auth.Login(ctx, auth.PasswordLogin{Email: "nobody@example.com", Password: "whatever1"})
	_, errWrong := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "wrongpass1"})

	if !auth.IsKind(errUnknown, auth.KindInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown account, got %v", errUnknown)
	}
	if !auth.IsKind(errWrong, auth.KindInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong password, got %v", errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("expected identical messages, got %q vs %q", errUnknown.Error(), errWrong.Error())
	}
}

func TestLogin_LocksAfterFiveFailures(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "wrongpass1"})
		if !auth.IsKind(err, auth.KindInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, err)
		}
	}

	_, errFifth := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "wrongpass1"})
	if !auth.IsKind(errFifth, auth.KindAccountLocked) {
		t.Fatalf("expected lock on fifth failure, got %v", errFifth)
	}

	// The correct password is rejected too while the lock holds.
	_, errLocked := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "password123"})
	if !auth.IsKind(errLocked, auth.KindAccountLocked) {
		t.Fatalf("expected locked account to reject correct password, got %v", errLocked)
	}
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "wrongpass1"})
	}

	if _, err := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "password123"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	user := env.users.FindByEmail(ctx, "alice@example.com")
	if user.FailedLoginAttempts != 0 {
		t.Fatalf("expected counter reset, got %d", user.FailedLoginAttempts)
	}
	if user.LockedUntil != nil {
		t.Fatalf("expected no lock after success")
	}
}

func enableEmailCode2FA(t *testing.T, env *testEnv, email string) {
	t.Helper()
	user := env.users.FindByEmail(context.Background(), email)
	if user == nil {
		t.Fatalf("user %s not found", email)
	}
	if err := env.users.Update(context.Background(), user.ID, map[string]any{"two_factor_enabled": true}); err != nil {
		t.Fatalf("enable 2fa: %v", err)
	}
}

func TestLogin_EmailCodeSecondFactorFlow(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	enableEmailCode2FA(t, env, "alice@example.com")
	ctx := context.Background()

	result, err := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.TwoFactorRequired {
		t.Fatalf("expected two-factor signal, got %+v", result)
	}
	if result.Session != nil {
		t.Fatalf("expected no session before the second factor")
	}

	code := env.notifier.lastCode(t)
	second, errSecond := env.auth.LoginSecondFactor(ctx, auth.SecondFactorLogin{Email: "alice@example.com", Code: code})
	if errSecond != nil {
		t.Fatalf("second factor: %v", errSecond)
	}
	if second.Session == nil || second.Session.Token == "" {
		t.Fatalf("expected a session after the second factor")
	}

	// The code was consumed on success.
	if _, errReuse := env.auth.LoginSecondFactor(ctx, auth.SecondFactorLogin{Email: "alice@example.com", Code: code}); !auth.IsKind(errReuse, auth.KindInvalidCode) {
		t.Fatalf("expected consumed code to be rejected, got %v", errReuse)
	}
}

func TestLoginSecondFactor_WrongCode(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	enableEmailCode2FA(t, env, "alice@example.com")
	ctx := context.Background()

	if _, err := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "password123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, errWrong := env.auth.LoginSecondFactor(ctx, auth.SecondFactorLogin{Email: "alice@example.com", Code: "000000"})
	if !auth.IsKind(errWrong, auth.KindInvalidCode) {
		t.Fatalf("expected invalid code, got %v", errWrong)
	}
}

func TestLoginSecondFactor_ExpiredCodeReissues(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	enableEmailCode2FA(t, env, "alice@example.com")
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	if err := env.tokens.ReplaceTwoFactorToken(ctx, "alice@example.com", "123456", past); err != nil {
		t.Fatalf("seed expired code: %v", err)
	}

	_, errExpired := env.auth.LoginSecondFactor(ctx, auth.SecondFactorLogin{Email: "alice@example.com", Code: "123456"})
	if !auth.IsKind(errExpired, auth.KindCodeExpired) {
		t.Fatalf("expected code expired, got %v", errExpired)
	}

	// A fresh code was dispatched and redeems normally.
	fresh := env.notifier.lastCode(t)
	if fresh == "123456" {
		t.Fatalf("expected a replacement code")
	}
	second, errSecond := env.auth.LoginSecondFactor(ctx, auth.SecondFactorLogin{Email: "alice@example.com", Code: fresh})
	if errSecond != nil {
		t.Fatalf("second factor with reissued code: %v", errSecond)
	}
	if second.Session == nil {
		t.Fatalf("expected a session after the reissued code")
	}
}

func TestLoginSecondFactor_RejectedWithoutTwoFactor(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")

	_, err := env.auth.LoginSecondFactor(context.Background(), auth.SecondFactorLogin{Email: "alice@example.com", Code: "123456"})
	if !auth.IsKind(err, auth.KindInvalidCode) {
		t.Fatalf("expected invalid code for non-2fa account, got %v", err)
	}
}

func TestRequestReset_UnknownEmailStaysSilent(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)

	if err := env.auth.RequestReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(env.notifier.resetTokens) != 0 {
		t.Fatalf("expected no reset mail for unknown account")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	ctx := context.Background()

	if err := env.auth.RequestReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := env.notifier.lastResetToken(t)

	if err := env.auth.PerformReset(ctx, token, "short"); !auth.IsKind(err, auth.KindInvalidInput) {
		t.Fatalf("expected short password rejection, got %v", err)
	}
	if err := env.auth.PerformReset(ctx, token, "newpassword456"); err != nil {
		t.Fatalf("perform reset: %v", err)
	}

	if _, err := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "newpassword456"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "password123"}); !auth.IsKind(err, auth.KindInvalidCredentials) {
		t.Fatalf("expected old password to fail, got %v", err)
	}

	// The token is single use.
	if err := env.auth.PerformReset(ctx, token, "anotherpass789"); !auth.IsKind(err, auth.KindInvalidToken) {
		t.Fatalf("expected used token rejection, got %v", err)
	}
}

func TestPerformReset_ExpiredToken(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	ctx := context.Background()

	user := env.users.FindByEmail(ctx, "alice@example.com")
	past := time.Now().UTC().Add(-time.Minute)
	if err := env.tokens.CreatePasswordReset(ctx, user.ID, "stale-token", past); err != nil {
		t.Fatalf("seed expired token: %v", err)
	}

	if err := env.auth.PerformReset(ctx, "stale-token", "newpassword456"); !auth.IsKind(err, auth.KindTokenExpired) {
		t.Fatalf("expected token expired, got %v", err)
	}
}

func TestTOTP_EnrollmentAndLogin(t *testing.T) {
	env := newTestEnv(t, config.StrategyTOTP)
	env.signup(t, "alice@example.com", "alice")
	ctx := context.Background()
	user := env.users.FindByEmail(ctx, "alice@example.com")

	enrollment, errBegin := env.auth.BeginTwoFactorEnrollment(ctx, user.ID)
	if errBegin != nil {
		t.Fatalf("begin enrollment: %v", errBegin)
	}
	if enrollment.Secret == "" || enrollment.ProvisioningURI == "" {
		t.Fatalf("expected secret and provisioning uri, got %+v", enrollment)
	}

	if err := env.auth.ConfirmTwoFactorEnrollment(ctx, user.ID, "000000"); !auth.IsKind(err, auth.KindInvalidCode) {
		t.Fatalf("expected wrong code rejection, got %v", err)
	}

	code, errCode := totp.GenerateCode(enrollment.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate totp code: %v", errCode)
	}
	if err := env.auth.ConfirmTwoFactorEnrollment(ctx, user.ID, code); err != nil {
		t.Fatalf("confirm enrollment: %v", err)
	}

	enabled, strategy, errStatus := env.auth.TwoFactorStatus(ctx, user.ID)
	if errStatus != nil {
		t.Fatalf("status: %v", errStatus)
	}
	if !enabled || strategy != config.StrategyTOTP {
		t.Fatalf("expected enabled totp, got enabled=%v strategy=%q", enabled, strategy)
	}

	result, errLogin := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "password123"})
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if !result.TwoFactorRequired {
		t.Fatalf("expected two-factor signal after enrollment")
	}

	loginCode, errLoginCode := totp.GenerateCode(enrollment.Secret, time.Now())
	if errLoginCode != nil {
		t.Fatalf("generate totp code: %v", errLoginCode)
	}
	second, errSecond := env.auth.LoginSecondFactor(ctx, auth.SecondFactorLogin{Email: "alice@example.com", Code: loginCode})
	if errSecond != nil {
		t.Fatalf("second factor: %v", errSecond)
	}
	if second.Session == nil || second.Session.Token == "" {
		t.Fatalf("expected a session after the second factor")
	}
}

func TestDisableTwoFactor(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	enableEmailCode2FA(t, env, "alice@example.com")
	ctx := context.Background()
	user := env.users.FindByEmail(ctx, "alice@example.com")

	if err := env.auth.DisableTwoFactor(ctx, user.ID); err != nil {
		t.Fatalf("disable: %v", err)
	}

	result, errLogin := env.auth.Login(ctx, auth.PasswordLogin{Email: "alice@example.com", Password: "password123"})
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if result.TwoFactorRequired {
		t.Fatalf("expected direct session after disabling the second factor")
	}
	if result.Session == nil {
		t.Fatalf("expected a session")
	}
}

func TestBeginTwoFactorEnrollment_AlreadyEnabled(t *testing.T) {
	env := newTestEnv(t, config.StrategyEmailCode)
	env.signup(t, "alice@example.com", "alice")
	enableEmailCode2FA(t, env, "alice@example.com")
	ctx := context.Background()
	user := env.users.FindByEmail(ctx, "alice@example.com")

	if _, err := env.auth.BeginTwoFactorEnrollment(ctx, user.ID); !auth.IsKind(err, auth.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
