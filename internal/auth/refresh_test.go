package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/miracckms/Couse-Selector-Advance/internal/api"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRefresher(t *testing.T) {
	var gotAuth string
	var gotBody TokenRefreshRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/refresh-token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"new","refreshToken":"r2","username":"ayse"}`))
	}))
	defer server.Close()

	transport, err := api.NewTransport(server.URL+"/api", api.TransportOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	cred, err := NewHTTPRefresher(transport).Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "new", cred.AccessToken)
	assert.Equal(t, "r2", cred.RefreshToken)
	assert.Equal(t, "ayse", cred.ProfileString("username"))
	assert.Equal(t, "r1", gotBody.RefreshToken)
	assert.Empty(t, gotAuth, "refresh call must not carry a bearer token")
}

func TestHTTPRefresherRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Refresh token expired"}`))
	}))
	defer server.Close()

	transport, err := api.NewTransport(server.URL, api.TransportOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = NewHTTPRefresher(transport).Refresh(context.Background(), "r1")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Contains(t, err.Error(), "Refresh token expired")
}

func TestHTTPRefresherMissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"refreshToken":"r2"}`))
	}))
	defer server.Close()

	transport, err := api.NewTransport(server.URL, api.TransportOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = NewHTTPRefresher(transport).Refresh(context.Background(), "r1")
	require.Error(t, err)
}
