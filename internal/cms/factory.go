package cms

import (
	"fmt"
	"time"

	"portalsync/internal/config"
	"portalsync/internal/portal"
)

// NewClientFromConfig creates a RemoteClient based on the remote config type.
// token is only used for type=http.
func NewClientFromConfig(cfg config.RemoteConfig, token string, ids portal.IDGenerator, logger portal.Logger) (portal.RemoteClient, error) {
	switch cfg.Type {
	case "http", "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("http remote requires base_url to be set")
		}
		if token == "" {
			return nil, fmt.Errorf("http remote requires an API token: run `portalsync config set-token` or set PORTALSYNC_TOKEN")
		}
		return NewHTTPClient(cfg.BaseURL, token, HTTPOptions{
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.MaxRetries,
		}, ids, logger), nil
	case "memory":
		return NewMemoryClient(ids), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
