package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const MinPasscodeLength = 4

var ErrPasscodeTooShort = fmt.Errorf("passcode must be at least %d characters", MinPasscodeLength)

func HashPasscode(passcode string) (string, error) {
	if len(passcode) < MinPasscodeLength {
		return "", ErrPasscodeTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash passcode: %w", err)
	}
	return string(hash), nil
}

// CheckPasscode reports whether passcode matches hash. Only malformed hashes
// produce an error.
func CheckPasscode(hash, passcode string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare passcode: %w", err)
	}
	return true, nil
}
