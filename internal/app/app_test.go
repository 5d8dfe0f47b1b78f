package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/miracckms/Couse-Selector-Advance/internal/auth"
	"github.com/miracckms/Couse-Selector-Advance/internal/config"
	"github.com/miracckms/Couse-Selector-Advance/internal/credentials"
	"github.com/miracckms/Couse-Selector-Advance/internal/fakeapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			URL:      baseURL,
			BasePath: "/api",
			Timeout:  5 * time.Second,
		},
		Prefs:       config.PrefsConfig{Debounce: time.Second},
		Credentials: config.CredentialsConfig{Store: config.StoreMemory},
		LogLevel:    "info",
	}
}

type fixture struct {
	backend *fakeapi.Server
	app     *App
	expired atomic.Int32
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, debounce time.Duration) *fixture {
	t.Helper()

	f := &fixture{backend: fakeapi.New(fakeapi.Options{}), reg: prometheus.NewRegistry()}
	f.backend.AddUser("ayse", "secret1", "ayse@example.edu")
	srv := httptest.NewServer(f.backend.Handler())
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.Prefs.Debounce = debounce

	a, err := New(cfg, Options{
		Logger:           zerolog.Nop(),
		Registerer:       f.reg,
		OnSessionExpired: func() { f.expired.Add(1) },
	})
	require.NoError(t, err)
	f.app = a
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	_, err := f.app.Auth.Login(context.Background(), "ayse", "secret1")
	require.NoError(t, err)
}

func TestLoginStoresCredential(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	assert.False(t, f.app.Auth.IsAuthenticated(ctx))
	f.login(t)

	assert.True(t, f.app.Auth.IsAuthenticated(ctx))
	assert.True(t, f.app.Auth.ValidateToken(ctx))
	user := f.app.Auth.CurrentUser(ctx)
	require.NotNil(t, user)
	assert.Equal(t, "ayse", user.ProfileString("username"))

	require.NoError(t, f.app.Auth.Logout(ctx))
	assert.False(t, f.app.Auth.IsAuthenticated(ctx))
	assert.Nil(t, f.app.Auth.CurrentUser(ctx))
}

func TestConcurrentExpiredRequestsRefreshOnce(t *testing.T) {
	f := newFixture(t, time.Second)
	f.login(t)
	f.backend.ExpireAccessTokens()

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			profile, err := f.app.Auth.Profile(context.Background())
			if err != nil {
				return err
			}
			if profile["username"] != "ayse" {
				return errors.New("unexpected profile")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, f.backend.RefreshCalls())
	assert.Equal(t, int32(0), f.expired.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.app.Metrics.Refreshes.WithLabelValues("success")))
}

func TestTerminalRefreshFailureExpiresSession(t *testing.T) {
	f := newFixture(t, time.Second)
	f.login(t)
	f.backend.ExpireAccessTokens()
	f.backend.RejectRefresh(true)

	_, err := f.app.Auth.Profile(context.Background())

	var refreshErr *auth.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, int32(1), f.expired.Load())
	assert.False(t, f.app.Auth.IsAuthenticated(context.Background()))

	// Without a refresh token the next 401 fails without calling the backend.
	calls := f.backend.RefreshCalls()
	_, err = f.app.Preferences.Get(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoRefreshToken)
	assert.Equal(t, calls, f.backend.RefreshCalls())
	assert.Equal(t, int32(2), f.expired.Load())
}

func TestPreferenceUpdatesCoalesceIntoOnePatch(t *testing.T) {
	f := newFixture(t, time.Second)
	f.login(t)
	ctx := context.Background()

	loaded := f.app.Sync.Load(ctx)
	require.NoError(t, f.app.Sync.Err())
	assert.Equal(t, "light", loaded.Theme)

	f.app.Sync.UpdateTheme("dark")
	time.Sleep(100 * time.Millisecond)
	f.app.Sync.UpdateLanguage("en")
	time.Sleep(100 * time.Millisecond)
	f.app.Sync.UpdateTheme("light")

	// Nothing is written inside the quiet window.
	time.Sleep(500 * time.Millisecond)
	assert.Empty(t, f.backend.Patches())

	require.Eventually(t, func() bool { return len(f.backend.Patches()) == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)

	patches := f.backend.Patches()
	require.Len(t, patches, 1)
	assert.Equal(t, map[string]any{"theme": "light", "language": "en"}, patches[0])
	assert.NoError(t, f.app.Sync.Err())
}

func TestPreferenceWriteSurvivesTokenExpiry(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.login(t)
	ctx := context.Background()
	f.app.Sync.Load(ctx)

	f.backend.ExpireAccessTokens()
	f.app.Sync.UpdateSelectedCourses([]string{"CSE101"})
	require.NoError(t, f.app.Close(ctx))

	assert.Equal(t, 1, f.backend.RefreshCalls())
	assert.Equal(t, `["CSE101"]`, f.backend.Preferences("ayse")["selectedCoursesAuto"])
}

func TestNewStorage(t *testing.T) {
	log := zerolog.Nop()

	s, closer, err := NewStorage(config.CredentialsConfig{Store: config.StoreMemory}, &log)
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &credentials.MemoryStorage{}, s)

	path := filepath.Join(t.TempDir(), "auth.json")
	s, _, err = NewStorage(config.CredentialsConfig{Store: config.StoreFile, File: path}, &log)
	require.NoError(t, err)
	assert.IsType(t, &credentials.FileStorage{}, s)

	m := miniredis.RunT(t)
	s, closer, err = NewStorage(config.CredentialsConfig{
		Store: config.StoreRedis,
		Redis: config.RedisConfig{Addr: m.Addr(), Key: "test:cred"},
	}, &log)
	require.NoError(t, err)
	require.NotNil(t, closer)
	t.Cleanup(func() { _ = closer() })

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, &credentials.Credential{AccessToken: "a", RefreshToken: "r"}))
	assert.True(t, m.Exists("test:cred"))

	_, _, err = NewStorage(config.CredentialsConfig{Store: "floppy"}, &log)
	assert.Error(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("http://localhost:8080")
	cfg.Prefs.Debounce = 0

	_, err := New(cfg, Options{})
	assert.Error(t, err)
}
