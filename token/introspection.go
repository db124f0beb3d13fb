package token

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-portal-client/internal/utils"
)

// ErrOpaque is returned when the credential is not a JWT. The portal backend
// is free to issue opaque tokens, so callers treat this as "unknown", not as
// a failure.
var ErrOpaque = errors.New("credential is not a JWT")

// Introspection is what the client can read from its own bearer credential
// without the issuer's key. None of it is verified; it is used for display
// and logging only. The backend remains the sole judge of validity.
type Introspection struct {
	Active bool     `json:"active"`            // False when exp is in the past
	Exp    *int64   `json:"exp,omitempty"`     // Expiration
	Iat    *int64   `json:"iat,omitempty"`     // Issued at time
	Iss    *string  `json:"iss,omitempty"`     // Issuer of the token
	Sub    *string  `json:"sub,omitempty"`     // Users unique ID
	Roles  []string `json:"roles,omitempty"`   // Roles, if the issuer embeds them
	Type   string   `json:"type,omitempty"`    // token_type claim (simplejwt sets "access")
	UserID string   `json:"user_id,omitempty"` // user_id claim (simplejwt)
}

// Inspect decodes rawToken's claims without verifying the signature.
func Inspect(rawToken string, now time.Time) (*Introspection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return &Introspection{Active: false}, nil
	}
	if strings.Count(rawToken, ".") != 2 {
		return &Introspection{Active: true}, ErrOpaque
	}

	unverifiedToken, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return &Introspection{Active: true}, errors.Wrap(ErrOpaque, err.Error())
	}
	claims, ok := unverifiedToken.Claims.(jwt.MapClaims)
	if !ok {
		return &Introspection{Active: true}, errors.New("error extracting claims")
	}

	result := &Introspection{
		Active: true,
		Iss:    utils.Claim[string](claims, "iss"),
		Sub:    utils.Claim[string](claims, "sub"),
		Iat:    utils.UnixClaim(claims, "iat"),
		Exp:    utils.UnixClaim(claims, "exp"),
	}
	if result.Exp != nil {
		result.Active = now.Unix() <= *result.Exp
	}
	result.Type, _ = claims["token_type"].(string)
	switch uid := claims["user_id"].(type) {
	case string:
		result.UserID = uid
	case float64:
		result.UserID = strconv.FormatInt(int64(uid), 10)
	}
	if claimRoles, ok := claims["roles"].([]interface{}); ok {
		result.Roles = interfaceArrayToString(claimRoles)
	}
	return result, nil
}

// ExpiresAt returns the exp claim as a time, or the zero time when absent.
func (i *Introspection) ExpiresAt() time.Time {
	if i == nil || i.Exp == nil {
		return time.Time{}
	}
	return time.Unix(utils.ValueOr(i.Exp, 0), 0)
}

func interfaceArrayToString(iArray []interface{}) []string {
	strArray := make([]string, 0, len(iArray))
	for _, v := range iArray {
		if s, ok := v.(string); ok {
			strArray = append(strArray, s)
		}
	}
	return strArray
}
