package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/miracckms/Couse-Selector-Advance/internal/logger"
	"github.com/miracckms/Couse-Selector-Advance/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Transport sends requests to the backend as-is. It knows nothing about
// credentials; Client layers authentication on top of it.
type Transport struct {
	baseURL    *url.URL
	httpClient HTTPClient
	limiter    *rate.Limiter
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// TransportOptions configures optional Transport behaviour.
type TransportOptions struct {
	HTTPClient HTTPClient
	// Limiter throttles outbound requests. Nil disables throttling.
	Limiter *rate.Limiter
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// NewTransport creates a transport rooted at baseURL (for example
// "http://localhost:8080/api").
func NewTransport(baseURL string, opts TransportOptions) (*Transport, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}

	return &Transport{
		baseURL:    base,
		httpClient: httpClient,
		limiter:    opts.Limiter,
		logger:     logger.Component(opts.Logger, "transport"),
		metrics:    opts.Metrics,
	}, nil
}

// BaseURL returns the configured API root.
func (t *Transport) BaseURL() string {
	return t.baseURL.String()
}

// Do sends req and returns the response for 2xx statuses. Non-2xx statuses
// yield a *StatusError, failures below HTTP a *TransportError.
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
		}
	}

	httpReq, err := t.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	requestID := httpReq.Header.Get("X-Request-ID")

	start := time.Now()
	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.metrics.ObserveRequest(req.Method, 0)
		t.logger.Warn().
			Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Str("request_id", requestID).
			Msg("Request failed before a response was received")
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		t.metrics.ObserveRequest(req.Method, 0)
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	t.metrics.ObserveRequest(req.Method, httpResp.StatusCode)
	t.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Str("request_id", requestID).
		Dur("duration", time.Since(start)).
		Msg("Finished request")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: httpResp.StatusCode,
			Body:       body,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (t *Transport) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s %s body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := t.baseURL.JoinPath(req.Path)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}
	return httpReq, nil
}
