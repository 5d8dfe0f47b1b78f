package api

import (
	"context"
	"errors"
	"strings"

	"github.com/miracckms/Couse-Selector-Advance/internal/credentials"
	"github.com/rs/zerolog"
)

// Routes that never enter the refresh-and-retry path. A 401 from either is
// returned to the caller as-is.
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh-token"
)

// TokenRefresher yields a fresh access token, possibly waiting for a refresh
// that another caller already started. usedToken is the token the rejected
// request carried.
type TokenRefresher interface {
	ObtainRefreshedToken(ctx context.Context, usedToken string) (string, error)
}

// Client is the authenticated request pipeline: it attaches the stored
// access token to every request and, on a 401, refreshes once and resends.
type Client struct {
	transport *Transport
	store     *credentials.Store
	refresher TokenRefresher
	logger    zerolog.Logger
}

func NewClient(transport *Transport, store *credentials.Store, refresher TokenRefresher, logger zerolog.Logger) *Client {
	return &Client{
		transport: transport,
		store:     store,
		refresher: refresher,
		logger:    logger.With().Str("component", "client").Logger(),
	}
}

// Send performs req with the current access token. Refresh errors are
// returned unchanged; every other failure of the original attempt is
// returned unchanged too.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	token := c.store.AccessToken(ctx)
	req.setBearer(token)

	resp, err := c.transport.Do(ctx, req)
	if err == nil {
		return resp, nil
	}
	if !errors.Is(err, ErrUnauthorized) || IsExemptPath(req.Path) || req.retried {
		return nil, err
	}

	req.retried = true

	newToken, err := c.refresher.ObtainRefreshedToken(ctx, token)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Msg("Retrying request with refreshed token")

	req.setBearer(newToken)
	return c.transport.Do(ctx, req)
}

// do is the JSON convenience wrapper used by the endpoint groups.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Send(ctx, NewRequest(method, path, body))
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// IsExemptPath reports whether path is the login or refresh route.
func IsExemptPath(path string) bool {
	return strings.Contains(path, LoginPath) || strings.Contains(path, RefreshPath)
}
