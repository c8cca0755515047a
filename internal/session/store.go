// Package session holds the bearer credential in the key-value store.
//
// Credential slots are versioned. Schema v2 keeps the token in exactly one
// canonical slot. Schema v1 clients wrote it under several names; readers
// still look there, in a fixed order, and migrate whatever they find into
// the canonical slot.
package session

import (
	"log/slog"
	"strings"
	"sync"

	"ContractGuard/internal/ports"
)

// CanonicalKey is the schema v2 slot, the only one ever written.
const CanonicalKey = "access_token"

// LegacyKeys are schema v1 slots, read in this order and never written.
var LegacyKeys = []string{"token", "accessToken", "ACCESS_TOKEN", "AUTH_TOKEN", "jwt"}

// Store reads and writes the session credential.
type Store struct {
	mu     sync.Mutex
	kv     ports.KVStore
	logger *slog.Logger
}

var _ ports.TokenSource = (*Store)(nil)

// NewStore wires the credential store over kv.
func NewStore(kv ports.KVStore, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// Token returns the active credential or "" when signed out. A credential
// found only in a legacy slot is migrated to the canonical slot.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.kv.Get(CanonicalKey); ok {
		if token := Normalize(v); token != "" {
			return token
		}
	}

	for _, key := range LegacyKeys {
		v, ok := s.kv.Get(key)
		if !ok {
			continue
		}
		token := Normalize(v)
		if token == "" {
			continue
		}
		s.debug("migrating legacy credential", "from", key)
		if err := s.writeLocked(token); err != nil {
			s.warn("credential migration failed", "error", err)
		}
		return token
	}
	return ""
}

// HasToken reports whether a credential is present.
func (s *Store) HasToken() bool {
	return s.Token() != ""
}

// SetToken makes token the only credential. An empty token signs out.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token = Normalize(token)
	if token == "" {
		return s.clearLocked()
	}
	return s.writeLocked(token)
}

// Clear removes the credential from every slot.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// Normalize trims whitespace and a leading "Bearer " scheme.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

func (s *Store) writeLocked(token string) error {
	if err := s.kv.Set(CanonicalKey, token); err != nil {
		return err
	}
	for _, key := range LegacyKeys {
		if err := s.kv.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) clearLocked() error {
	if err := s.kv.Remove(CanonicalKey); err != nil {
		return err
	}
	for _, key := range LegacyKeys {
		if err := s.kv.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Store) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
