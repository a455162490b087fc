package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/client"
	"github.com/workforce/tracker/pkg/credentials"
	"github.com/workforce/tracker/pkg/logger"
	"github.com/workforce/tracker/pkg/tracker"
)

// Claims are the fields the backend puts in its access tokens
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ParseToken reads the claims of an access token. The signature is not
// verified: the client never holds the signing key and the server checks
// every request anyway.
func ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("access token has no subject")
	}
	return claims, nil
}

// NewCredentials builds the stored session for a successful login
func NewCredentials(email string, resp *api.LoginResponse) (*credentials.Credentials, error) {
	claims, err := ParseToken(resp.AccessToken)
	if err != nil {
		return nil, err
	}

	creds := &credentials.Credentials{
		AccessToken:         resp.AccessToken,
		UserID:              claims.Subject,
		Email:               email,
		Role:                resp.Role,
		ForcePasswordChange: resp.ForcePasswordChange,
	}
	if creds.Role == "" {
		creds.Role = claims.Role
	}
	if claims.ExpiresAt != nil {
		creds.ExpiresAt = claims.ExpiresAt.Time
	}
	return creds, nil
}

// SessionHandler drops the stored session once the backend rejects it
type SessionHandler struct {
	mu      sync.Mutex
	cleared bool
}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Invalidate deletes the stored credentials and the client's token. Only
// the first call does any work.
func (h *SessionHandler) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cleared {
		return
	}
	h.cleared = true

	logger.Warn("Session rejected by server, clearing stored credentials")
	if err := credentials.Delete(); err != nil {
		logger.Error("Failed to delete credentials", "error", err)
	}
	client.ClearAuthToken()
}

// Cleared reports whether Invalidate has run
func (h *SessionHandler) Cleared() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cleared
}

// IsSessionError reports whether err means the user must log in again
func IsSessionError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, tracker.ErrSessionInvalid) || api.IsSessionInvalid(err)
}
