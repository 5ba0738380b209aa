// Package auth holds the two authentication collaborators the station
// uses: bcrypt credential verification for the driver-facing register
// and login wire actions (spec §6), and JWT issuance for the
// admin HTTP dashboard, which sits outside the wire protocol entirely.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Verify on any password mismatch,
// deliberately not distinguishing "unknown user" from "wrong password".
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialStore hashes and verifies driver passwords with bcrypt. It
// holds no state of its own; the caller (the accounts service) is
// responsible for persisting the returned digest alongside the user.
type CredentialStore struct {
	cost int
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{cost: bcrypt.DefaultCost}
}

// Hash returns the bcrypt digest to store as domain.User.PasswordDigest.
func (c *CredentialStore) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether password matches the stored digest.
func (c *CredentialStore) Verify(digest, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
