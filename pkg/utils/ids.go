package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	mixedAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// ErrIDTooShort is returned when the requested id length cannot fit the prefix and separator.
var ErrIDTooShort = errors.New("id length must exceed prefix and separator")

// PrefixedID returns "{prefix}-{random}" with exactly totalLength characters.
// The random part is drawn from A-Z0-9 so support staff can read it back over the phone.
func PrefixedID(prefix string, totalLength int) (string, error) {
	n := totalLength - len(prefix) - 1
	if n <= 0 {
		return "", ErrIDTooShort
	}
	s, err := randomFrom(upperAlnum, n)
	if err != nil {
		return "", err
	}
	return prefix + "-" + s, nil
}

// RoomID returns a random mixed-case alphanumeric room identifier.
func RoomID(length int) (string, error) {
	return randomFrom(mixedAlnum, length)
}

// ShortToken returns a lowercase alphanumeric token, used as the random tail of
// anonymous session and group room identifiers.
func ShortToken(length int) (string, error) {
	return randomFrom(lowerAlnum, length)
}

func randomFrom(alphabet string, n int) (string, error) {
	if n <= 0 {
		return "", ErrIDTooShort
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
