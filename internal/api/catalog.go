package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CatalogAPI covers the read-mostly course catalogue, schedule generation,
// quota checks and the backend course cache.
type CatalogAPI struct {
	client *Client
}

func NewCatalogAPI(client *Client) *CatalogAPI {
	return &CatalogAPI{client: client}
}

func (c *CatalogAPI) raw(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.client.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogAPI) Seasons(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/seasons", nil)
}

func (c *CatalogAPI) Departments(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/departments", nil)
}

func (c *CatalogAPI) Calendar(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/calendar", nil)
}

func (c *CatalogAPI) AllCourses(ctx context.Context, seasonID string) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, fmt.Sprintf("/courses/%s/all", seasonID), nil)
}

func (c *CatalogAPI) Courses(ctx context.Context, seasonID, departmentID string) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, fmt.Sprintf("/courses/%s/%s", seasonID, departmentID), nil)
}

func (c *CatalogAPI) GenerateSchedule(ctx context.Context, req any) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodPost, "/schedule/generate", req)
}

func (c *CatalogAPI) CheckQuotas(ctx context.Context, req any) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodPost, "/quota/check", req)
}

func (c *CatalogAPI) CacheStatus(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodGet, "/cache/status", nil)
}

func (c *CatalogAPI) RefreshCache(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, http.MethodPost, "/cache/refresh", nil)
}

func (c *CatalogAPI) CacheReady(ctx context.Context) (bool, error) {
	var ready bool
	if err := c.client.do(ctx, http.MethodGet, "/cache/ready", nil, &ready); err != nil {
		return false, err
	}
	return ready, nil
}
