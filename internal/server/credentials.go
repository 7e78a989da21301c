// Package server authenticates users against a fixed credential table seeded
// at startup. Passwords are stored only as bcrypt hashes.
package server

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a username is unknown or the
// password does not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// CredentialStore holds the static username to password-hash table used by
// the authentication gate. The table is immutable after construction, so
// lookups need no locking.
type CredentialStore struct {
	hashes map[string][]byte
}

// NewCredentialStore hashes the provided username/password pairs and returns
// a store ready for verification. The plaintext map is not retained.
func NewCredentialStore(users map[string]string) (*CredentialStore, error) {
	hashes := make(map[string][]byte, len(users))
	for username, password := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password for %q: %w", username, err)
		}
		hashes[username] = hash
	}
	return &CredentialStore{hashes: hashes}, nil
}

// Verify checks a username/password pair against the table. It returns
// ErrInvalidCredentials for unknown users and mismatched passwords alike, so
// callers cannot distinguish the two cases.
func (s *CredentialStore) Verify(username, password string) error {
	hash, ok := s.hashes[username]
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
