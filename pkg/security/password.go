package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Account passwords are between MinPasswordLen and MaxPasswordLen bytes;
// bcrypt ignores everything past 72 bytes.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

var (
	ErrPasswordTooShort  = errors.New("password too short")
	ErrPasswordTooLong   = errors.New("password too long")
	ErrPasswordsMismatch = errors.New("passwords do not match")
	ErrWrongPassword     = errors.New("wrong password")
)

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

// Bcrypt hashes with a fixed cost. Tests use bcrypt.MinCost to stay fast.
type Bcrypt struct {
	Cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost for an out of range cost.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Bcrypt{Cost: cost}
}

func (b Bcrypt) Hash(password string) (string, error) {
	if err := checkLength(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare returns ErrWrongPassword on a mismatch and the bcrypt error for a
// malformed hash.
func (b Bcrypt) Compare(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPassword
	}
	return err
}

// CheckPasswordPair validates a new password against its confirmation.
func CheckPasswordPair(password, confirm string) error {
	if password != confirm {
		return ErrPasswordsMismatch
	}
	return checkLength(password)
}

func checkLength(password string) error {
	switch {
	case len(password) < MinPasswordLen:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLen:
		return ErrPasswordTooLong
	}
	return nil
}
