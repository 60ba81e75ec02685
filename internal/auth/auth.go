package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// Manager issues and validates opaque session tokens. Tokens live in
// process memory; a restart invalidates all sessions and clients
// re-authenticate, same as the connection registry.
type Manager struct {
	mu     sync.RWMutex
	tokens map[string]int
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{tokens: make(map[string]int)}
}

// Issue creates a session token for the user.
func (m *Manager) Issue(userID int) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	m.mu.Lock()
	m.tokens[token] = userID
	m.mu.Unlock()
	return token, nil
}

// Validate resolves a token to the authenticated user id.
func (m *Manager) Validate(token string) (int, error) {
	m.mu.RLock()
	userID, ok := m.tokens[token]
	m.mu.RUnlock()
	if !ok {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// Revoke invalidates a token.
func (m *Manager) Revoke(token string) {
	m.mu.Lock()
	delete(m.tokens, token)
	m.mu.Unlock()
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
