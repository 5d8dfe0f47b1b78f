package api

import (
	"context"
	"encoding/json"
	"net/http"
)

const preferencesPath = "/preferences"

// PreferencesAPI moves raw preference documents. The schema lives in the
// prefs package.
type PreferencesAPI struct {
	client *Client
}

func NewPreferencesAPI(client *Client) *PreferencesAPI {
	return &PreferencesAPI{client: client}
}

// Get returns the stored preference document.
func (p *PreferencesAPI) Get(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := p.client.do(ctx, http.MethodGet, preferencesPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Put replaces the whole preference document.
func (p *PreferencesAPI) Put(ctx context.Context, prefs any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := p.client.do(ctx, http.MethodPut, preferencesPath, prefs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Patch updates only the fields present in updates.
func (p *PreferencesAPI) Patch(ctx context.Context, updates map[string]any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := p.client.do(ctx, http.MethodPatch, preferencesPath, updates, &out); err != nil {
		return nil, err
	}
	return out, nil
}
