package auth

import (
	"time"

	"github.com/jrsteele09/go-portal-client/token"
)

// CredentialExpiry returns the unverified exp claim of credential. ok is
// false for opaque credentials and for JWTs without an exp claim.
func CredentialExpiry(credential string) (expiry time.Time, ok bool) {
	info, err := token.Inspect(credential, time.Now())
	if err != nil || info.Exp == nil {
		return time.Time{}, false
	}
	return info.ExpiresAt(), true
}
