// Package auth manages the bearer tokens accepted by the API: generating
// and persisting the local token file and verifying presented tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// TokenBytes is the amount of randomness in a generated token.
	TokenBytes = 32
	// TokenFilePerm keeps the token file private to its owner.
	TokenFilePerm = 0o600
	// DisplayPrefixLength is how much of a token is shown in CLI output.
	DisplayPrefixLength = 8
)

// GenerateToken returns TokenBytes random bytes, hex encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LoadOrCreateToken returns the token stored at path. When the file is
// missing or empty a new token is generated and written. created reports
// whether that happened.
func LoadOrCreateToken(path string) (token string, created bool, err error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if token = strings.TrimSpace(string(data)); token != "" {
			return token, false, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", false, fmt.Errorf("failed to read token file: %w", err)
	}

	token, err = RotateToken(path)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// RotateToken generates a new token and overwrites the file at path.
func RotateToken(path string) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(token), TokenFilePerm); err != nil {
		return "", fmt.Errorf("failed to write token file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, TokenFilePerm); err != nil {
		return "", fmt.Errorf("failed to restrict token file: %w", err)
	}
	return token, nil
}

// DisplayPrefix returns a safe-to-print prefix of token.
func DisplayPrefix(token string) string {
	if len(token) <= DisplayPrefixLength {
		return strings.Repeat("*", len(token))
	}
	return token[:DisplayPrefixLength] + "..."
}

// TokenSet is the set of accepted bearer tokens. Tokens may carry an
// expiry. It is safe for concurrent use.
type TokenSet struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	now    func() time.Time
}

// NewTokenSet creates a set holding the given non-expiring tokens. Empty
// strings are ignored.
func NewTokenSet(tokens ...string) *TokenSet {
	s := &TokenSet{tokens: make(map[string]time.Time), now: time.Now}
	for _, t := range tokens {
		s.Add(t, time.Time{})
	}
	return s
}

// Add accepts token until expiresAt. A zero expiresAt never expires.
func (s *TokenSet) Add(token string, expiresAt time.Time) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	s.mu.Lock()
	s.tokens[token] = expiresAt
	s.mu.Unlock()
}

// Remove stops accepting token.
func (s *TokenSet) Remove(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Len returns the number of configured tokens, expired ones included.
func (s *TokenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Empty reports whether no tokens are configured. An empty set disables
// authentication.
func (s *TokenSet) Empty() bool {
	return s.Len() == 0
}

// Verify reports whether presented matches an unexpired token. Every
// configured token is compared in constant time.
func (s *TokenSet) Verify(presented string) bool {
	if presented == "" {
		return false
	}
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	match := false
	for token, expiresAt := range s.tokens {
		eq := subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
		if eq && (expiresAt.IsZero() || now.Before(expiresAt)) {
			match = true
		}
	}
	return match
}
