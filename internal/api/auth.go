package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/miracckms/Couse-Selector-Advance/internal/credentials"
	"github.com/rs/zerolog"
)

// AuthAPI wraps the /auth routes and keeps the credential store in sync
// with login and logout.
type AuthAPI struct {
	client *Client
	store  *credentials.Store
	logger zerolog.Logger
}

func NewAuthAPI(client *Client, store *credentials.Store, logger zerolog.Logger) *AuthAPI {
	return &AuthAPI{
		client: client,
		store:  store,
		logger: logger.With().Str("component", "auth_api").Logger(),
	}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/signup.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// ChangePasswordRequest is the body of PUT /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates and stores the returned credential when it carries a token.
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*credentials.Credential, error) {
	var cred credentials.Credential
	if err := a.client.do(ctx, http.MethodPost, LoginPath, LoginRequest{Username: username, Password: password}, &cred); err != nil {
		return nil, err
	}
	if cred.AccessToken == "" {
		return &cred, nil
	}
	if err := a.store.Set(ctx, &cred); err != nil {
		return nil, fmt.Errorf("login succeeded but credential could not be stored: %w", err)
	}

	a.logger.Info().
		Str("username", cred.ProfileString("username")).
		Int("token_length", len(cred.AccessToken)).
		Msg("Logged in")
	return &cred, nil
}

// Register creates an account. It does not sign in.
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (map[string]any, error) {
	var out map[string]any
	if err := a.client.do(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Logout revokes the refresh token on a best-effort basis and always clears
// the local credential.
func (a *AuthAPI) Logout(ctx context.Context) error {
	if refresh := a.store.RefreshToken(ctx); refresh != "" {
		if err := a.client.do(ctx, http.MethodPost, "/auth/logout", logoutRequest{RefreshToken: refresh}, nil); err != nil {
			a.logger.Debug().Err(err).Msg("Ignoring logout error")
		}
	}
	return a.store.Clear(ctx)
}

// CurrentUser returns the stored credential, or nil when signed out.
func (a *AuthAPI) CurrentUser(ctx context.Context) *credentials.Credential {
	cred, err := a.store.Get(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to read stored credential")
		return nil
	}
	return cred
}

func (a *AuthAPI) IsAuthenticated(ctx context.Context) bool {
	return a.store.AccessToken(ctx) != ""
}

// ValidateToken checks the session against GET /auth/me. An expired access
// token is refreshed transparently along the way.
func (a *AuthAPI) ValidateToken(ctx context.Context) bool {
	if !a.IsAuthenticated(ctx) {
		return false
	}
	_, err := a.Profile(ctx)
	return err == nil
}

func (a *AuthAPI) Profile(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := a.client.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *AuthAPI) UpdateProfile(ctx context.Context, profile map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := a.client.do(ctx, http.MethodPut, "/auth/profile", profile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *AuthAPI) ChangePassword(ctx context.Context, currentPassword, newPassword string) (map[string]any, error) {
	if currentPassword == "" || newPassword == "" {
		return nil, errors.New("current and new password are required")
	}
	var out map[string]any
	req := ChangePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := a.client.do(ctx, http.MethodPut, "/auth/change-password", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
