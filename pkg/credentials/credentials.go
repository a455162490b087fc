package credentials

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	json "github.com/json-iterator/go"
	"github.com/workforce/tracker/pkg/config"
	"github.com/workforce/tracker/pkg/logger"
)

type Credentials struct {
	AccessToken         string    `json:"access_token"`
	ExpiresAt           time.Time `json:"expires_at"`
	UserID              string    `json:"user_id"`
	Email               string    `json:"email"`
	Role                string    `json:"role"`
	ForcePasswordChange bool      `json:"force_password_change"`
}

// Load loads credentials from disk
func Load() (*Credentials, error) {
	path := config.GetCredentialsPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Credentials don't exist yet
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// Save saves credentials to disk
func Save(creds *Credentials) error {
	path := config.GetCredentialsPath()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	// Write with restricted permissions (owner read/write only)
	return os.WriteFile(path, data, 0600)
}

// Delete deletes credentials from disk. Deleting absent credentials is not an error.
func Delete() error {
	path := config.GetCredentialsPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Watch calls onRemoved once when the credentials file is deleted or
// renamed away, e.g. by `tracker auth logout` in another terminal. It
// returns when ctx is done.
func Watch(ctx context.Context, onRemoved func()) error {
	path := config.GetCredentialsPath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory; the file itself may be replaced on save
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				logger.Debug("Credentials removed", "path", path)
				onRemoved()
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Credentials watcher error", "error", err)
		}
	}
}

// IsExpired checks if the access token is expired. A zero expiry means the
// backend did not say, and the token is trusted until it is rejected.
func (c *Credentials) IsExpired() bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

// IsValid checks if credentials are valid
func (c *Credentials) IsValid() bool {
	return c.AccessToken != "" && !c.IsExpired()
}
