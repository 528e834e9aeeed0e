package session

import "time"

// Session is the signed-in state of this device.
type Session struct {
	AccessToken  string    // Bearer credential sent with authenticated requests
	RefreshToken string    // Credential exchanged for a new access token
	IssuedAt     time.Time // When the current access token was obtained
}

// SignedIn reports whether the session holds any credential.
func (s Session) SignedIn() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// Tokens is a token pair as issued by the login, signup and refresh endpoints.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshState tells whether a token refresh is running or has failed.
type RefreshState int

const (
	RefreshIdle RefreshState = iota
	RefreshInFlight
	RefreshFailed
)

func (s RefreshState) String() string {
	switch s {
	case RefreshIdle:
		return "idle"
	case RefreshInFlight:
		return "refreshing"
	case RefreshFailed:
		return "failed"
	default:
		return "unknown"
	}
}
