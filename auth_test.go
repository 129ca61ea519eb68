package main

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthLogin(t *testing.T) {
	a := NewAuth(nil, "hunter2", "")

	if _, err := a.Login("wrong", "1.2.3.4"); err == nil {
		t.Error("wrong password should fail")
	}
	token, err := a.Login("hunter2", "1.2.3.4")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := a.ValidateToken(token); err != nil {
		t.Errorf("fresh token rejected: %v", err)
	}
	if err := a.ValidateToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}
}

func TestAuthDisabledWithoutPassword(t *testing.T) {
	a := NewAuth(nil, "", "s3cret")
	if a.Enabled() {
		t.Fatal("auth should be disabled")
	}
	if _, err := a.Login("", "1.2.3.4"); err == nil {
		t.Error("login must fail when disabled")
	}
}

func TestAuthRejectsForeignTokens(t *testing.T) {
	a := NewAuth(nil, "pw", "secret-a")
	b := NewAuth(nil, "pw", "secret-b")

	token, _ := b.Login("pw", "ip")
	if err := a.ValidateToken(token); err == nil {
		t.Error("token signed with another secret accepted")
	}

	claims := jwt.MapClaims{"sub": "player", "exp": time.Now().Add(time.Hour).Unix()}
	wrongSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret-a"))
	if err := a.ValidateToken(wrongSub); err == nil {
		t.Error("token for another subject accepted")
	}

	expired := jwt.MapClaims{"sub": adminSubject, "exp": time.Now().Add(-time.Hour).Unix()}
	old, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte("secret-a"))
	if err := a.ValidateToken(old); err == nil {
		t.Error("expired token accepted")
	}
}

func TestAuthSecretPersisted(t *testing.T) {
	db := openTestDB(t)
	first := NewAuth(db, "pw", "")
	second := NewAuth(db, "pw", "")

	token, err := first.Login("pw", "ip")
	if err != nil {
		t.Fatal(err)
	}
	if err := second.ValidateToken(token); err != nil {
		t.Errorf("secret should be shared through settings: %v", err)
	}
}

func TestAuthLoginRateLimit(t *testing.T) {
	a := NewAuth(nil, "pw", "k")
	for i := 0; i < maxLoginAttempts; i++ {
		a.Login("nope", "9.9.9.9")
	}
	if _, err := a.Login("pw", "9.9.9.9"); err == nil {
		t.Error("expected rate limit after repeated failures")
	}
	if _, err := a.Login("pw", "8.8.8.8"); err != nil {
		t.Errorf("other addresses are unaffected: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer  xyz": "xyz",
		"Basic abc":   "",
		"Bearer ":     "",
		"":            "",
	}
	for header, want := range tests {
		if got := bearerToken(header); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
