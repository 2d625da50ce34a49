package auth

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier hashes passwords and checks them against stored hashes. Hashes
// are opaque strings to the rest of the system.
type Verifier interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptVerifier implements Verifier with bcrypt.
type BcryptVerifier struct {
	Cost int
}

var _ Verifier = BcryptVerifier{}

// NewBcryptVerifier returns a verifier using the default bcrypt cost.
func NewBcryptVerifier() BcryptVerifier {
	return BcryptVerifier{Cost: bcrypt.DefaultCost}
}

func (v BcryptVerifier) Hash(password string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (v BcryptVerifier) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash returns a hash no password matches. It is checked on login paths
// that have no real hash so every attempt costs one verification.
func dummyHash(v Verifier) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return v.Hash(fmt.Sprintf("%x", buf))
}
