package encryption

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// PlainTokenStore keeps the token unencrypted in an owner-only file, for
// CI machines where nobody can type a passphrase.
type PlainTokenStore struct {
	path string
}

var _ TokenStore = (*PlainTokenStore)(nil)

func NewPlainTokenStore(path string) *PlainTokenStore {
	return &PlainTokenStore{path: path}
}

// Save ignores the passphrase.
func (s *PlainTokenStore) Save(token, _ string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is empty")
	}
	return writeSecret(s.path, []byte(token+"\n"))
}

func (s *PlainTokenStore) Load(_ string) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PlainTokenStore) IsConfigured() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *PlainTokenStore) NeedsPassphrase() bool { return false }
