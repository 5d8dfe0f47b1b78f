package auth

import "errors"

// ErrNoRefreshToken means the credential store held no refresh token, so no
// refresh call was attempted.
var ErrNoRefreshToken = errors.New("no refresh token available")

// RefreshError is the terminal failure of a refresh. The stored credential
// has been cleared and the session-expiry callback invoked by the time a
// caller sees it.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "token refresh failed: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// TokenRefreshRequest is the body of POST /auth/refresh-token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Outcome is what a parked caller receives once the refresh it waited on settles.
type Outcome struct {
	Token string
	Err   error
}
