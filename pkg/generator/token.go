package generator

import (
	"crypto/rand"
	"encoding/hex"
)

// Token returns a random hex token of 2*n characters, used for password
// reset links.
func Token(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
