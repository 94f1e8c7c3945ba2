package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a wrong email or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Passwords hashes and verifies bcrypt passwords.
type Passwords struct {
	cost  int
	dummy []byte
}

// NewPasswords uses bcrypt.DefaultCost when cost is out of range.
func NewPasswords(cost int) *Passwords {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("helpdesk-unknown-account"), cost)
	return &Passwords{cost: cost, dummy: dummy}
}

// Hash hashes a plaintext password.
func (p *Passwords) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("empty password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify checks plain against hashed.
func (p *Passwords) Verify(hashed, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Burn spends one comparison so unknown accounts take as long as wrong passwords.
func (p *Passwords) Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plain))
}
