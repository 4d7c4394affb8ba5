package auth

import (
	"github.com/desertthunder/toplikes/internal/shared"
	"golang.org/x/oauth2"
)

// ChallengeMethod is the only PKCE method this client uses.
const ChallengeMethod = "S256"

// PKCE holds the code verifier and its derived challenge for one authorization attempt.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE draws a 32-byte verifier from crypto/rand and derives its S256 challenge.
//
// Both values are unpadded base64url, so they need no escaping in a query string.
// There is no error return: a failing entropy source panics inside [oauth2.GenerateVerifier].
func GeneratePKCE() PKCE {
	verifier := oauth2.GenerateVerifier()
	return PKCE{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
	}
}

// AuthCodeOptions returns the authorize URL parameters carrying the challenge.
func (p PKCE) AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge_method", ChallengeMethod),
		oauth2.SetAuthURLParam("code_challenge", p.Challenge),
	}
}

func (p PKCE) String() string {
	return "PKCE(" + shared.Redacted + ")"
}

func (p PKCE) GoString() string {
	return p.String()
}
