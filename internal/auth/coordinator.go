package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/miracckms/Couse-Selector-Advance/internal/credentials"
	"github.com/miracckms/Couse-Selector-Advance/internal/metrics"
	"github.com/rs/zerolog"
)

// Options configures a Coordinator.
type Options struct {
	// OnSessionExpired is invoked once per terminal refresh failure.
	OnSessionExpired func()
	Logger           *zerolog.Logger
	Metrics          *metrics.Metrics
}

// Coordinator runs at most one token refresh at a time. Callers arriving
// while a refresh is in flight are parked in a RequestQueue and released
// with that refresh's outcome.
type Coordinator struct {
	store     *credentials.Store
	refresher Refresher
	onExpired func()
	logger    *zerolog.Logger
	metrics   *metrics.Metrics

	mu         sync.Mutex
	refreshing bool
	queue      RequestQueue
}

func NewCoordinator(store *credentials.Store, refresher Refresher, opts Options) *Coordinator {
	return &Coordinator{
		store:     store,
		refresher: refresher,
		onExpired: opts.OnSessionExpired,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Refreshing reports whether a refresh is currently in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// ObtainRefreshedToken returns a new access token, either by running the
// refresh itself or by waiting for the one already in flight. usedToken is
// the access token the rejected request carried. If the stored token already
// differs from it, another caller refreshed in between and that token is
// returned without a second refresh. A waiter whose ctx ends stops waiting;
// the refresh itself is not cancelled.
func (c *Coordinator) ObtainRefreshedToken(ctx context.Context, usedToken string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := c.queue.Enqueue()
		position := c.queue.Len()
		c.mu.Unlock()

		c.metrics.WaiterQueued()
		if c.logger != nil {
			c.logger.Debug().Int("position", position).Msg("Waiting for in-flight token refresh")
		}

		select {
		case out := <-ch:
			return out.Token, out.Err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// A finished refresh calls store.Set before settle drops the flag, so
	// with c.mu held and no refresh running the store is up to date.
	current := c.store.AccessToken(ctx)
	if current != "" && current != usedToken {
		c.mu.Unlock()
		return current, nil
	}
	if current == "" && usedToken != "" && c.store.RefreshToken(ctx) == "" {
		// The session ended after this request was sent; expiry was
		// already reported.
		c.mu.Unlock()
		return "", &RefreshError{Err: ErrNoRefreshToken}
	}

	c.refreshing = true
	c.mu.Unlock()

	return c.refresh(ctx)
}

func (c *Coordinator) refresh(ctx context.Context) (token string, err error) {
	// Other callers depend on this refresh, so it outlives the caller's ctx.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	result := "success"

	defer func() {
		if r := recover(); r != nil {
			token = ""
			err = &RefreshError{Err: fmt.Errorf("panic during refresh: %v", r)}
			result = "failure"
		}
		c.metrics.ObserveRefresh(result, time.Since(start))
		c.settle(ctx, token, err)
	}()

	refreshToken := c.store.RefreshToken(ctx)
	if refreshToken == "" {
		result = "no_token"
		return "", &RefreshError{Err: ErrNoRefreshToken}
	}

	if c.logger != nil {
		c.logger.Info().Msg("🔄 Access token rejected, refreshing...")
	}

	cred, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		result = "failure"
		return "", &RefreshError{Err: err}
	}

	if err := c.store.Set(ctx, cred); err != nil && c.logger != nil {
		// The in-memory credential is already replaced; only durability is lost.
		c.logger.Error().Err(err).Msg("❌ Failed to persist refreshed credential")
	}

	if c.logger != nil {
		ev := c.logger.Info().Int("token_length", len(cred.AccessToken))
		if exp, ok := cred.ExpiresAt(); ok {
			ev = ev.Int64("minutes_until_expiry", int64(time.Until(exp).Minutes()))
		}
		ev.Msg("✅ Access token refreshed")
	}
	return cred.AccessToken, nil
}

// settle finishes a refresh on every exit path. On failure the credential is
// cleared before the state flag drops, so no caller can start a second
// refresh with the rejected refresh token. Resetting the flag and detaching
// the queue happen under one lock hold, so nobody can enqueue in between.
func (c *Coordinator) settle(ctx context.Context, token string, err error) {
	if err != nil {
		if clearErr := c.store.Clear(ctx); clearErr != nil && c.logger != nil {
			c.logger.Error().Err(clearErr).Msg("Failed to clear credential after refresh failure")
		}
	}

	c.mu.Lock()
	c.refreshing = false
	waiters := c.queue.Detach()
	c.mu.Unlock()

	if c.logger != nil {
		ev := c.logger.Debug().Int("waiters", len(waiters))
		if err != nil {
			ev = c.logger.Warn().Err(err).Int("waiters", len(waiters))
		}
		ev.Msg("Token refresh settled")
	}

	waiters.Release(Outcome{Token: token, Err: err})

	if err != nil && c.onExpired != nil {
		c.onExpired()
	}
}
