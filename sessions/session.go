package sessions

import (
	"bytes"
	"encoding/json"
)

// Persisted key layout. Both keys are written and cleared together.
const (
	KeyUser        = "user"
	KeyAccessToken = "access_token"
)

// Record is the persisted session: the serialised identity and the bearer
// credential. A zero Record means nobody is logged in.
type Record struct {
	User        json.RawMessage `json:"user,omitempty"`         // Serialised users.Identity
	AccessToken string          `json:"access_token,omitempty"` // Opaque bearer credential
}

// IsEmpty reports whether neither key is present.
func (r Record) IsEmpty() bool {
	return len(bytes.TrimSpace(r.User)) == 0 && r.AccessToken == ""
}

// Complete reports whether both keys are present. Only a complete record is
// worth validating against the backend.
func (r Record) Complete() bool {
	return len(bytes.TrimSpace(r.User)) > 0 && r.AccessToken != ""
}

// Entries flattens the record into the key-value layout used by the
// sqlite and redis stores. Absent keys are omitted.
func (r Record) Entries() map[string]string {
	entries := make(map[string]string, 2)
	if len(bytes.TrimSpace(r.User)) > 0 {
		entries[KeyUser] = string(r.User)
	}
	if r.AccessToken != "" {
		entries[KeyAccessToken] = r.AccessToken
	}
	return entries
}

// RecordFromEntries is the inverse of Entries. Unknown keys are ignored.
func RecordFromEntries(entries map[string]string) Record {
	var r Record
	if user, ok := entries[KeyUser]; ok && user != "" {
		r.User = json.RawMessage(user)
	}
	r.AccessToken = entries[KeyAccessToken]
	return r
}
