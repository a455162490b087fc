package auth

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/config"
	"github.com/workforce/tracker/pkg/credentials"
	"github.com/workforce/tracker/pkg/tracker"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// TestParseToken reads the subject and role without the signing key
func TestParseToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, jwt.MapClaims{"sub": "7", "role": "employee", "exp": exp.Unix()})

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.Subject != "7" {
		t.Errorf("Expected subject 7, got %q", claims.Subject)
	}
	if claims.Role != "employee" {
		t.Errorf("Expected role employee, got %q", claims.Role)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.Equal(exp) {
		t.Errorf("Expected expiry %v, got %v", exp, claims.ExpiresAt)
	}
}

// TestParseToken_Invalid rejects garbage and tokens without a subject
func TestParseToken_Invalid(t *testing.T) {
	testCases := []struct {
		token string
		name  string
	}{
		{"not-a-jwt", "malformed"},
		{"", "empty"},
		{signToken(t, jwt.MapClaims{"role": "employee"}), "no subject"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseToken(tc.token); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

// TestNewCredentials maps the login response and token claims
func TestNewCredentials(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := signToken(t, jwt.MapClaims{"sub": "12", "role": "manager", "exp": exp.Unix()})

	creds, err := NewCredentials("asha@example.com", &api.LoginResponse{AccessToken: token, ForcePasswordChange: true})
	if err != nil {
		t.Fatalf("NewCredentials failed: %v", err)
	}
	if creds.UserID != "12" || creds.Email != "asha@example.com" {
		t.Errorf("Unexpected identity: %+v", creds)
	}
	if creds.Role != "manager" {
		t.Errorf("Expected role from claims, got %q", creds.Role)
	}
	if !creds.ForcePasswordChange {
		t.Error("Expected ForcePasswordChange to carry over")
	}
	if !creds.ExpiresAt.Equal(exp) {
		t.Errorf("Expected expiry %v, got %v", exp, creds.ExpiresAt)
	}
}

// TestSessionHandler_Invalidate deletes stored credentials once
func TestSessionHandler_Invalidate(t *testing.T) {
	if err := config.Init(filepath.Join(t.TempDir(), "config.toml")); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if err := credentials.Save(&credentials.Credentials{AccessToken: "jwt", UserID: "7"}); err != nil {
		t.Fatalf("save credentials: %v", err)
	}

	h := NewSessionHandler()
	if h.Cleared() {
		t.Fatal("New handler should not be cleared")
	}

	h.Invalidate()
	h.Invalidate()

	if !h.Cleared() {
		t.Error("Handler should be cleared after Invalidate")
	}
	creds, err := credentials.Load()
	if err != nil {
		t.Fatalf("load credentials: %v", err)
	}
	if creds != nil {
		t.Errorf("Credentials should be deleted, got %+v", creds)
	}
}

// TestIsSessionError matches tracker and API session failures
func TestIsSessionError(t *testing.T) {
	testCases := []struct {
		err    error
		expect bool
		name   string
	}{
		{nil, false, "nil"},
		{tracker.ErrSessionInvalid, true, "tracker sentinel"},
		{fmt.Errorf("%w: Session expired", tracker.ErrSessionInvalid), true, "wrapped sentinel"},
		{&api.APIError{StatusCode: 401, Code: "unauthorized"}, true, "api 401"},
		{&api.APIError{StatusCode: 500, Code: "server_error"}, false, "api 500"},
		{tracker.ErrBusy, false, "other sentinel"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSessionError(tc.err); got != tc.expect {
				t.Errorf("IsSessionError(%v) = %v, want %v", tc.err, got, tc.expect)
			}
		})
	}
}
