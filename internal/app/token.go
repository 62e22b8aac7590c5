package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"portalsync/internal/config"
	"portalsync/internal/encryption"
	"portalsync/internal/portal"
)

// loadToken returns the CMS API token: PORTALSYNC_TOKEN when set, otherwise
// the token store's content. A sealed store is unlocked with
// PORTALSYNC_PASSPHRASE or a passphrase prompt. No saved token yields "".
func loadToken(ctx context.Context, cfg config.SecretConfig, chooser portal.Chooser) (string, error) {
	if t := strings.TrimSpace(os.Getenv(EnvToken)); t != "" {
		return t, nil
	}

	store, err := encryption.NewTokenStoreFromConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("creating token store: %w", err)
	}
	if !store.IsConfigured() {
		return "", nil
	}

	var passphrase string
	if store.NeedsPassphrase() {
		passphrase = os.Getenv(EnvPassphrase)
		if passphrase == "" {
			if chooser == nil {
				return "", fmt.Errorf("%w: set %s to unlock the API token", portal.ErrConfiguration, EnvPassphrase)
			}
			p, ok, err := chooser.Prompt(ctx, "Passphrase for the saved API token", true, nil)
			if err != nil {
				return "", fmt.Errorf("reading passphrase: %w", err)
			}
			if !ok {
				return "", fmt.Errorf("%w: a passphrase is required to unlock the API token", portal.ErrConfiguration)
			}
			passphrase = p
		}
	}

	token, err := store.Load(passphrase)
	if err != nil {
		if errors.Is(err, encryption.ErrNoToken) {
			return "", nil
		}
		return "", fmt.Errorf("unlocking API token: %w", err)
	}
	return token, nil
}

// SetToken asks for the CMS API token and saves it in the configured token
// store. Sealed stores ask for a passphrase twice unless
// PORTALSYNC_PASSPHRASE is set. ok is false when the user dismissed a prompt.
func SetToken(ctx context.Context, cfg config.SecretConfig, chooser portal.Chooser) (ok bool, err error) {
	store, err := encryption.NewTokenStoreFromConfig(cfg)
	if err != nil {
		return false, fmt.Errorf("creating token store: %w", err)
	}

	notEmpty := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("value cannot be empty")
		}
		return nil
	}

	token, ok, err := chooser.Prompt(ctx, "CMS API token", true, notEmpty)
	if err != nil || !ok {
		return false, err
	}

	var passphrase string
	if store.NeedsPassphrase() {
		passphrase = os.Getenv(EnvPassphrase)
		if passphrase == "" {
			first, ok, err := chooser.Prompt(ctx, "Passphrase to seal the token", true, notEmpty)
			if err != nil || !ok {
				return false, err
			}
			second, ok, err := chooser.Prompt(ctx, "Repeat the passphrase", true, notEmpty)
			if err != nil || !ok {
				return false, err
			}
			if first != second {
				return false, fmt.Errorf("passphrases do not match")
			}
			passphrase = first
		}
	}

	if err := store.Save(token, passphrase); err != nil {
		return false, fmt.Errorf("saving API token: %w", err)
	}
	return true, nil
}
