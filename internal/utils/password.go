package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.  The limit is in
// bytes, so a Cyrillic password reaches it at 36 characters.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password longer than 72 bytes")

// PasswordFits reports whether plain can be hashed.
func PasswordFits(plain string) bool { return len(plain) <= MaxPasswordBytes }

// HashPassword returns the bcrypt hash of plain at the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if !PasswordFits(plain) {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash with a login attempt.  Inputs bcrypt
// would refuse to hash never match.
func VerifyPassword(hash, plain string) bool {
	if !PasswordFits(plain) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
