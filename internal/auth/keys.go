// Package auth verifies bearer tokens and resolves them to identities.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// keySize is the PASETO v4.local symmetric key size in bytes.
const keySize = 32

const keyFile = "auth.key"

// ParseKey decodes a hex key as written by LoadOrGenerateKey or supplied
// through AUTH_TOKEN_KEY.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2*keySize {
		return nil, fmt.Errorf("auth key: want %d hex characters, got %d", 2*keySize, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("auth key: %w", err)
	}
	return key, nil
}

// LoadOrGenerateKey reads dataPath/auth.key. The first run creates the
// directory and writes a random key readable only by the owner.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	path := filepath.Join(dataPath, keyFile)

	raw, err := os.ReadFile(path) //#nosec G304 -- under the configured data path
	switch {
	case err == nil:
		return ParseKey(string(raw))
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate auth key: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", dataPath, err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return key, nil
}
