// Package encryption stores the CMS API token at rest.
package encryption

import (
	"errors"
	"fmt"

	"portalsync/internal/config"
)

// ErrNoToken is returned by Load when no token has been saved yet.
var ErrNoToken = errors.New("no API token saved: run `portalsync config set-token`")

// TokenStore persists the CMS API token.
type TokenStore interface {
	Save(token, passphrase string) error
	Load(passphrase string) (string, error)
	IsConfigured() bool
	// NeedsPassphrase reports whether Save and Load use the passphrase.
	NeedsPassphrase() bool
}

// NewTokenStoreFromConfig creates a TokenStore based on the secret config type.
func NewTokenStoreFromConfig(cfg config.SecretConfig) (TokenStore, error) {
	if cfg.TokenFile == "" {
		return nil, fmt.Errorf("secret config requires token_file to be set")
	}
	switch cfg.Type {
	case "age", "":
		return NewAgeTokenStore(cfg.TokenFile), nil
	case "plain":
		return NewPlainTokenStore(cfg.TokenFile), nil
	default:
		return nil, fmt.Errorf("unknown secret type: %q", cfg.Type)
	}
}
