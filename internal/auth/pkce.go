package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
)

// verifierLength is the number of random bytes used to build the PKCE code
// verifier. Base64url-encoding 64 bytes yields an 86-character string,
// comfortably inside the 43-128 character range the PKCE spec requires.
const verifierLength = 64

// pkcePair is a generated code_verifier/code_challenge pair for one login
// attempt.
type pkcePair struct {
	Verifier  string
	Challenge string
}

// newPKCEPair generates a fresh verifier and its S256 challenge.
func newPKCEPair() (*pkcePair, error) {
	raw := make([]byte, verifierLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.Wrap(err, "generating code verifier")
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)

	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	return &pkcePair{Verifier: verifier, Challenge: challenge}, nil
}

// newState generates a random CSRF nonce to bind the authorization request
// to its eventual callback.
func newState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "generating state")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
