package delivery

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const otpLength = 6

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random 6-digit numeric code, zero padded.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}

// ValidOTP reports whether s has the shape of a generated code.
func ValidOTP(s string) bool {
	if len(s) != otpLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// newOTPPair draws the pickup and delivery codes independently.
func newOTPPair(gen func() (string, error)) (pickup, delivery string, err error) {
	if pickup, err = gen(); err != nil {
		return "", "", err
	}
	if delivery, err = gen(); err != nil {
		return "", "", err
	}
	return pickup, delivery, nil
}
