// Package app wires the request pipeline and the preference synchronizer
// from a Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/miracckms/Couse-Selector-Advance/internal/api"
	"github.com/miracckms/Couse-Selector-Advance/internal/auth"
	"github.com/miracckms/Couse-Selector-Advance/internal/config"
	"github.com/miracckms/Couse-Selector-Advance/internal/credentials"
	"github.com/miracckms/Couse-Selector-Advance/internal/debounce"
	"github.com/miracckms/Couse-Selector-Advance/internal/metrics"
	"github.com/miracckms/Couse-Selector-Advance/internal/prefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var _ prefs.Remote = (*api.PreferencesAPI)(nil)
var _ api.TokenRefresher = (*auth.Coordinator)(nil)

// Options overrides pieces of the default wiring.
type Options struct {
	Logger zerolog.Logger
	// Registerer receives the metrics collectors. Nil skips registration.
	Registerer prometheus.Registerer
	HTTPClient api.HTTPClient
	// Storage replaces the backend selected by Config.Credentials.Store.
	Storage credentials.Storage
	// OnSessionExpired runs after a terminal refresh failure, once the
	// credential has been cleared.
	OnSessionExpired func()
	AfterFunc        debounce.AfterFunc
}

// App owns every long-lived component. There is one App per process.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	Store       *credentials.Store
	Transport   *api.Transport
	Coordinator *auth.Coordinator
	Client      *api.Client

	Auth        *api.AuthAPI
	Preferences *api.PreferencesAPI
	Schedules   *api.ScheduleAPI
	Catalog     *api.CatalogAPI
	Sync        *prefs.Synchronizer

	closers []func() error
}

func New(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	a := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(opts.Registerer),
	}

	storage := opts.Storage
	if storage == nil {
		s, closer, err := NewStorage(cfg.Credentials, &log)
		if err != nil {
			return nil, err
		}
		storage = s
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}
	a.Store = credentials.NewStore(storage, &log)

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = api.NewHTTPClient(cfg.API.Timeout)
	}
	var limiter *rate.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.RateBurst)
	}

	transport, err := api.NewTransport(cfg.BaseURL(), api.TransportOptions{
		HTTPClient: httpClient,
		Limiter:    limiter,
		Logger:     log,
		Metrics:    a.Metrics,
	})
	if err != nil {
		return nil, err
	}
	a.Transport = transport

	onExpired := opts.OnSessionExpired
	if onExpired == nil {
		onExpired = func() {
			log.Warn().Msg("Session expired, log in again")
		}
	}
	a.Coordinator = auth.NewCoordinator(a.Store, auth.NewHTTPRefresher(transport), auth.Options{
		OnSessionExpired: onExpired,
		Logger:           &log,
		Metrics:          a.Metrics,
	})

	a.Client = api.NewClient(transport, a.Store, a.Coordinator, log)
	a.Auth = api.NewAuthAPI(a.Client, a.Store, log)
	a.Preferences = api.NewPreferencesAPI(a.Client)
	a.Schedules = api.NewScheduleAPI(a.Client)
	a.Catalog = api.NewCatalogAPI(a.Client)
	a.Sync = prefs.NewSynchronizer(a.Preferences, prefs.Options{
		Delay:     cfg.Prefs.Debounce,
		AfterFunc: opts.AfterFunc,
		Logger:    &log,
		Metrics:   a.Metrics,
	})

	log.Debug().
		Str("base_url", transport.BaseURL()).
		Str("credential_store", cfg.Credentials.Store).
		Dur("debounce", cfg.Prefs.Debounce).
		Msg("Application wired")

	return a, nil
}

// NewStorage builds the durable credential backend named by cfg.Store. The
// returned closer, when not nil, releases the backend's connections.
func NewStorage(cfg config.CredentialsConfig, logger *zerolog.Logger) (credentials.Storage, func() error, error) {
	switch cfg.Store {
	case config.StoreFile:
		if logger != nil {
			logger.Debug().
				Str("path", cfg.File).
				Bool("exists", credentials.FileExists(cfg.File)).
				Msg("Using credential file")
		}
		return credentials.NewFileStorage(cfg.File), nil, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return credentials.NewRedisStorage(client, cfg.Redis.Key), client.Close, nil
	case config.StoreKeychain:
		return credentials.NewKeychainStorage(cfg.KeychainService, logger), nil, nil
	case config.StoreMemory:
		return credentials.NewMemoryStorage(nil), nil, nil
	case config.StoreEnv:
		return credentials.NewEnvStorage(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown credential store %q", cfg.Store)
}

// Close flushes pending preference writes and releases backends.
func (a *App) Close(ctx context.Context) error {
	errs := []error{a.Sync.Close(ctx)}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
