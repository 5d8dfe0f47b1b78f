package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/miracckms/Couse-Selector-Advance/internal/api"
	"github.com/miracckms/Couse-Selector-Advance/internal/credentials"
)

// Refresher exchanges a refresh token for a new credential.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*credentials.Credential, error)
}

// HTTPRefresher calls POST /auth/refresh-token on the raw transport, so the
// call carries no bearer token and can never recurse into another refresh.
type HTTPRefresher struct {
	transport *api.Transport
}

func NewHTTPRefresher(transport *api.Transport) *HTTPRefresher {
	return &HTTPRefresher{transport: transport}
}

func (h *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (*credentials.Credential, error) {
	req := api.NewRequest(http.MethodPost, api.RefreshPath, TokenRefreshRequest{RefreshToken: refreshToken})
	resp, err := h.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var cred credentials.Credential
	if err := resp.Decode(&cred); err != nil {
		return nil, err
	}
	if cred.AccessToken == "" {
		return nil, errors.New("refresh response carried no access token")
	}
	return &cred, nil
}
