package service

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/workforce/tracker/pkg/api"
	"github.com/workforce/tracker/pkg/auth"
	"github.com/workforce/tracker/pkg/cache"
	"github.com/workforce/tracker/pkg/client"
	"github.com/workforce/tracker/pkg/config"
	"github.com/workforce/tracker/pkg/credentials"
	apperrors "github.com/workforce/tracker/pkg/errors"
	"github.com/workforce/tracker/pkg/logger"
	"github.com/workforce/tracker/pkg/tracker"
)

// session is the logged-in user a command acts for
type session struct {
	creds   *credentials.Credentials
	api     *api.Client
	handler *auth.SessionHandler
}

// openSession loads stored credentials and authenticates the shared HTTP
// client with them
func openSession() (*session, error) {
	creds, err := credentials.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil || creds.AccessToken == "" {
		return nil, apperrors.AuthError("Not logged in")
	}
	if creds.IsExpired() {
		logger.Debug("Stored token expired", "expires_at", creds.ExpiresAt)
		if err := credentials.Delete(); err != nil {
			logger.Warn("Failed to delete expired credentials", "error", err)
		}
		return nil, apperrors.SessionExpiredError(nil)
	}

	client.SetAuthToken(creds.AccessToken)
	return &session{
		creds:   creds,
		api:     api.Default(),
		handler: auth.NewSessionHandler(),
	}, nil
}

func (s *session) newTracker(clock clockwork.Clock) *tracker.Tracker {
	return tracker.New(s.api, tracker.Options{
		Clock:            clock,
		SyncInterval:     time.Duration(config.GetInt("tracker.sync_interval_s")) * time.Second,
		GateInterval:     time.Duration(config.GetInt("tracker.gate_interval_s")) * time.Second,
		OnSessionInvalid: s.handler.Invalidate,
	})
}

func snapshotCache() *cache.Store {
	return cache.New(config.GetString("tracker.cache"))
}

// remember caches snap for the next watch to start from. Nothing is
// cached once the server has rejected the session.
func (s *session) remember(snap tracker.Snapshot) {
	if snap.LastSync.IsZero() || s.handler.Cleared() {
		return
	}
	if err := snapshotCache().Save(s.creds.UserID, snap); err != nil {
		logger.Warn("Failed to cache snapshot", "error", err)
	}
}
