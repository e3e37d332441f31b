package library

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is the single admin account. Only a bcrypt hash of the
// password is kept.
type Credentials struct {
	username string
	hash     []byte
}

func NewCredentials(username, password string) (*Credentials, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &Credentials{username: username, hash: hash}, nil
}

func (c *Credentials) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	return userOK && passOK
}
