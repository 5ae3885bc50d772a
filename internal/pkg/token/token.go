package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// NumericCode generates a code of exactly digits decimal digits, each drawn
// uniformly from crypto/rand. Leading zeros are kept.
func NumericCode(digits int) (string, error) {
	if digits <= 0 {
		return "", errors.New("code length must be positive")
	}
	b := make([]byte, digits)
	ten := big.NewInt(10)
	for i := range b {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code digit: %w", err)
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}

// Random returns n cryptographically random bytes encoded as unpadded base64url.
func Random(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}
