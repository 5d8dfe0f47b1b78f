package credentials

import (
	"encoding/json"
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrNotFound is returned by a Storage when no credential has been persisted.
var ErrNotFound = errors.New("credential not found")

// Credential is the access/refresh pair returned by the login and refresh
// endpoints. Any other fields of that response (username, email, roles...)
// are kept verbatim in Profile and written back untouched.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Profile      map[string]json.RawMessage
}

const (
	accessTokenKey  = "token"
	refreshTokenKey = "refreshToken"
)

// UnmarshalJSON splits the login payload into tokens and opaque profile fields.
func (c *Credential) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Credential{}
	if v, ok := raw[accessTokenKey]; ok {
		if err := json.Unmarshal(v, &c.AccessToken); err != nil {
			return err
		}
		delete(raw, accessTokenKey)
	}
	if v, ok := raw[refreshTokenKey]; ok {
		if err := json.Unmarshal(v, &c.RefreshToken); err != nil {
			return err
		}
		delete(raw, refreshTokenKey)
	}
	if len(raw) > 0 {
		c.Profile = raw
	}
	return nil
}

// MarshalJSON writes the credential back in the same shape the backend returned it.
func (c Credential) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Profile)+2)
	for k, v := range c.Profile {
		out[k] = v
	}

	token, err := json.Marshal(c.AccessToken)
	if err != nil {
		return nil, err
	}
	out[accessTokenKey] = token

	if c.RefreshToken != "" {
		refresh, err := json.Marshal(c.RefreshToken)
		if err != nil {
			return nil, err
		}
		out[refreshTokenKey] = refresh
	}
	return json.Marshal(out)
}

// Clone returns a deep copy so callers can never mutate the stored value in place.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := &Credential{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
	}
	if c.Profile != nil {
		cp.Profile = make(map[string]json.RawMessage, len(c.Profile))
		for k, v := range c.Profile {
			cp.Profile[k] = append(json.RawMessage(nil), v...)
		}
	}
	return cp
}

// ProfileString returns a string profile field such as "username".
func (c *Credential) ProfileString(key string) string {
	if c == nil {
		return ""
	}
	raw, ok := c.Profile[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// ExpiresAt reads the exp claim of the access token without verifying it.
// Tokens are opaque to this client; the value is only used for display and
// logging, and ok is false when the token is not a JWT or carries no exp.
func (c *Credential) ExpiresAt() (time.Time, bool) {
	if c == nil || c.AccessToken == "" {
		return time.Time{}, false
	}

	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(c.AccessToken, &gojwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
