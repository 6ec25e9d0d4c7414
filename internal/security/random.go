package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateRandomString returns a hex string from byteLen random bytes.
func GenerateRandomString(byteLen int) (string, error) {
	if byteLen <= 0 {
		return "", fmt.Errorf("security: invalid length %d", byteLen)
	}
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateNumericCode returns a uniformly random code of the given digit count.
// The first digit is never zero, so a 6-digit code is drawn from [100000,999999].
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("security: invalid digit count %d", digits)
	}
	low := int64(1)
	for i := 1; i < digits; i++ {
		low *= 10
	}
	span := low*10 - low
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("security: read random: %w", err)
	}
	return fmt.Sprintf("%d", low+n.Int64()), nil
}
