package models

import (
	"time"

	"github.com/desertthunder/toplikes/internal/shared"
)

// AccessToken is the bearer credential returned by the token endpoint.
//
// It lives for the duration of the process and is never written to disk.
// String and GoString are redacted so the value cannot end up in logs.
type AccessToken struct {
	Value     string
	TokenType string
	Scope     string
	Expiry    time.Time
}

// Valid reports whether the token carries a value and has not expired.
func (t AccessToken) Valid() bool {
	if t.Value == "" {
		return false
	}
	return t.Expiry.IsZero() || time.Now().Before(t.Expiry)
}

func (t AccessToken) String() string {
	return "AccessToken(" + shared.Redacted + ")"
}

func (t AccessToken) GoString() string {
	return t.String()
}
