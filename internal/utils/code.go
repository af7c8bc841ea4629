package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // omit easily confused chars

// ErrCodeSpaceExhausted is returned when every attempt collided with a live code.
var ErrCodeSpaceExhausted = errors.New("could not mint an unused short code")

func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = 6
	}
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		idxBig, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[idxBig.Int64()]
	}
	return string(b), nil
}

// GenerateUniqueCode draws codes until inUse reports a free one, giving up
// after attempts tries.
func GenerateUniqueCode(n, attempts int, inUse func(code string) (bool, error)) (string, error) {
	for i := 0; i < attempts; i++ {
		code, err := GenerateCode(n)
		if err != nil {
			return "", err
		}
		taken, err := inUse(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
