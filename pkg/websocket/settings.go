package websocket

import (
	"time"

	"github.com/workforce/tracker/pkg/config"
)

// FromSettings builds a Config for userID from the ws.* configuration keys
func FromSettings(userID, token string) Config {
	cfg := DefaultConfig()
	cfg.URL = config.GetString("ws.url")
	if path := config.GetString("ws.path"); path != "" {
		cfg.Path = path
	}
	if delay := config.GetInt("ws.reconnect_delay_ms"); delay > 0 {
		cfg.ReconnectDelay = time.Duration(delay) * time.Millisecond
	}
	cfg.UserID = userID
	cfg.Token = token
	return cfg
}
