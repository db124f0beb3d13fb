package utils

import "encoding/json"

// Claim returns a pointer to claims[key] when it holds a T, or nil when the
// claim is absent or of another type.
func Claim[T any](claims map[string]any, key string) *T {
	v, ok := claims[key].(T)
	if !ok {
		return nil
	}
	return &v
}

// UnixClaim reads a NumericDate claim such as exp or iat. Decoded JSON
// numbers arrive as float64, or as json.Number when UseNumber was set.
func UnixClaim(claims map[string]any, key string) *int64 {
	switch v := claims[key].(type) {
	case float64:
		n := int64(v)
		return &n
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return &n
		}
	}
	return nil
}

// ValueOr dereferences v, or returns fallback when v is nil.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
