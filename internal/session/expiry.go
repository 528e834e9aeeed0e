package session

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var tokenSigningAlgs = []jose.SignatureAlgorithm{
	jose.HS256, jose.HS384, jose.HS512,
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.EdDSA,
}

// tokenExpiry returns the exp claim of a JWT access token. The signature is not
// verified; the backend remains the authority on validity. Opaque tokens report false.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, err := jwt.ParseSigned(token, tokenSigningAlgs)
	if err != nil {
		return time.Time{}, false
	}

	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return time.Time{}, false
	}

	if claims.Expiry == nil {
		return time.Time{}, false
	}

	return claims.Expiry.Time(), true
}

// shouldRefresh reports whether token expires within window of now.
func shouldRefresh(token string, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}

	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}

	return exp.Sub(now) < window
}
