// Package pin guards the vault. PINs are stored only as bcrypt hashes and
// the unlocked state lives in daemon memory for the session.
package pin

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrLocked  = errors.New("vault is locked")
	ErrNoPIN   = errors.New("no vault PIN set")
	ErrWeakPIN = errors.New("PIN too short")
)

// MinLength is the shortest accepted PIN.
const MinLength = 4

// Hash returns the bcrypt hash of pin.
func Hash(pin string) (string, error) {
	if utf8.RuneCountInString(pin) < MinLength {
		return "", fmt.Errorf("%w: need at least %d characters", ErrWeakPIN, MinLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(h), nil
}

// Verify reports whether pin matches hash. An empty hash never matches.
func Verify(hash, pin string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// Session is the in-memory unlock flag. The zero value is locked.
type Session struct {
	mu       sync.Mutex
	unlocked bool
}

func (s *Session) Unlock() {
	s.mu.Lock()
	s.unlocked = true
	s.mu.Unlock()
}

func (s *Session) Lock() {
	s.mu.Lock()
	s.unlocked = false
	s.mu.Unlock()
}

func (s *Session) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked
}
