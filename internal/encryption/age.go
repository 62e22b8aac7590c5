package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// AgeTokenStore keeps the CMS API token encrypted with the user's
// passphrase using age's scrypt-based passphrase encryption.
type AgeTokenStore struct {
	path string
	// workFactor is the scrypt log2(N); 0 keeps age's default.
	workFactor int
}

var _ TokenStore = (*AgeTokenStore)(nil)

// NewAgeTokenStore creates a store sealing the token at path.
func NewAgeTokenStore(path string) *AgeTokenStore {
	return &AgeTokenStore{path: path}
}

// Save encrypts token with passphrase and replaces the token file.
func (s *AgeTokenStore) Save(token, passphrase string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is empty")
	}
	if passphrase == "" {
		return fmt.Errorf("passphrase is empty")
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, token); err != nil {
		return fmt.Errorf("writing encrypted token: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted token: %w", err)
	}

	return writeSecret(s.path, buf.Bytes())
}

// Load decrypts the token file with passphrase.
func (s *AgeTokenStore) Load(passphrase string) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading token file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return "", fmt.Errorf("decrypting token (wrong passphrase?): %w", err)
	}
	token, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted token: %w", err)
	}
	return string(token), nil
}

// IsConfigured returns true if the token file exists.
func (s *AgeTokenStore) IsConfigured() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *AgeTokenStore) NeedsPassphrase() bool { return true }

// writeSecret writes data readable only by the owner.
func writeSecret(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}
