// Package pkce creates Proof Key for Code Exchange pairs (RFC 7636).
//
// Only the S256 transform is produced; plain challenges are never issued.
package pkce

import (
	"crypto/subtle"

	"github.com/jrsteele09/go-openid-client/oauth2"
	xoauth2 "golang.org/x/oauth2"
)

// Challenge is a verifier/challenge pair bound to one authorization request.
type Challenge struct {
	// Verifier is kept by the client and sent to the token endpoint.
	// 32 random bytes, URL-safe base64 without padding (43 characters).
	Verifier string

	// Challenge is BASE64URL(SHA256(Verifier)) and is sent to the
	// authorization endpoint.
	Challenge string

	// Method is always S256.
	Method oauth2.CodeMethodType
}

// CreateChallenge draws a fresh verifier from crypto/rand and derives its
// S256 challenge. Safe for concurrent use.
func CreateChallenge() Challenge {
	verifier := xoauth2.GenerateVerifier()
	return Challenge{
		Verifier:  verifier,
		Challenge: xoauth2.S256ChallengeFromVerifier(verifier),
		Method:    oauth2.CodeMethodTypeS256,
	}
}

// Verify reports whether challenge is the S256 transform of verifier.
func Verify(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	expected := xoauth2.S256ChallengeFromVerifier(verifier)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}
