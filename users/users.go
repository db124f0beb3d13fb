package users

import (
	"encoding/json"
	"strings"
)

// Identity is the authenticated user's profile record as served by the
// portal backend. Fields the client does not model are kept in Extra so a
// stored identity round-trips without losing server data.
type Identity struct {
	ID                 int64    `json:"id"`                             // Backend primary key
	Username           string   `json:"username,omitempty"`             // Login name
	FirstName          string   `json:"first_name,omitempty"`           // Given name
	LastName           string   `json:"last_name,omitempty"`            // Family name
	Email              string   `json:"email,omitempty"`                // Contact email
	Role               RoleType `json:"role,omitempty"`                 // Role tag deciding which screens are reachable
	NationalID         string   `json:"national_id,omitempty"`          // Also the initial password for bulk-created accounts
	PhoneNumber        string   `json:"phone_number,omitempty"`         // Optional phone number
	Address            string   `json:"address,omitempty"`              // Optional postal address
	ProfilePicture     string   `json:"profile_picture,omitempty"`      // URL of the uploaded picture
	FirstLoginRequired bool     `json:"first_login_required,omitempty"` // Forces a password change before any dashboard

	Extra map[string]json.RawMessage `json:"-"`
}

type identityFields Identity

var knownFields = []string{
	"id", "username", "first_name", "last_name", "email", "role",
	"national_id", "phone_number", "address", "profile_picture", "first_login_required",
}

func (i Identity) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(identityFields(i))
	if err != nil || len(i.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]json.RawMessage, len(i.Extra)+len(knownFields))
	for k, v := range i.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (i *Identity) UnmarshalJSON(data []byte) error {
	var fields identityFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(all, k)
	}
	*i = Identity(fields)
	if len(all) > 0 {
		i.Extra = all
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate a stored identity.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(i.Extra))
		for k, v := range i.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// DisplayName returns "First Last", falling back to the username.
func (i *Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Username
	}
	return name
}

// LandingRoute is the screen this identity is sent to after login or when
// it requests a screen its role cannot open.
func (i *Identity) LandingRoute() string {
	if i == nil {
		return RouteHome
	}
	return i.Role.LandingRoute()
}
