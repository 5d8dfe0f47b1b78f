package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Request describes one call against the backend. Header is mutable
// metadata: the client rewrites Authorization on every attempt.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header

	retried bool
}

// NewRequest builds a request for path relative to the API base URL.
func NewRequest(method, path string, body any) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Body:   body,
		Header: make(http.Header),
	}
}

// Retried reports whether the request already went through a refresh-and-retry.
func (r *Request) Retried() bool {
	return r.retried
}

func (r *Request) setBearer(token string) {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	if token == "" {
		r.Header.Del("Authorization")
		return
	}
	r.Header.Set("Authorization", "Bearer "+token)
}

// Response is a fully-read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if v == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
