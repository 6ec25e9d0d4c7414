package security

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong password") {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateNumericCode(6)
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("expected digits only, got %q", code)
			}
		}
		if code[0] == '0' {
			t.Fatalf("expected no leading zero, got %q", code)
		}
	}
}

func TestGenerateRandomString(t *testing.T) {
	a, err := GenerateRandomString(32)
	if err != nil {
		t.Fatalf("generate random string: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars for 32 bytes, got %d", len(a))
	}
	b, err := GenerateRandomString(32)
	if err != nil {
		t.Fatalf("generate random string: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := IssueSessionToken("secret", 42, "alice", time.Hour)
	if err != nil {
		t.Fatalf("issue session token: %v", err)
	}

	claims, errParse := ParseSessionToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse session token: %v", errParse)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected uid=42, got %d", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Fatalf("expected username=alice, got %q", claims.Username)
	}

	if _, errWrong := ParseSessionToken("other-secret", token); errWrong == nil {
		t.Fatalf("expected wrong secret to fail")
	}
}

func TestIssueSessionToken_EmptySecret(t *testing.T) {
	if _, err := IssueSessionToken("", 1, "alice", time.Hour); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
}
