package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	route string
	body  string
}

func newRecordingClient(t *testing.T) (*Client, *[]call) {
	t.Helper()
	var calls []call
	client, _, _ := newTestClient(t, func(rec *recorded, w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{route: r.Method + " " + r.URL.Path, body: strings.TrimSpace(string(body))})
		if r.URL.Path == "/api/cache/ready" {
			_, _ = w.Write([]byte(`true`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	return client, &calls
}

func TestScheduleRoutes(t *testing.T) {
	client, calls := newRecordingClient(t)
	s := NewScheduleAPI(client)
	ctx := context.Background()

	_, err := s.Save(ctx, map[string]any{"name": "Fall"})
	require.NoError(t, err)
	_, _ = s.List(ctx)
	_, _ = s.Get(ctx, 7)
	_, _ = s.BySeason(ctx, 3)
	_, _ = s.Favorites(ctx)
	_, _ = s.ToggleFavorite(ctx, 7)
	_, _ = s.Update(ctx, 7, "Fall v2", "less mornings")
	out, err := s.Delete(ctx, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(out))

	routes := make([]string, 0, len(*calls))
	for _, c := range *calls {
		routes = append(routes, c.route)
	}
	assert.Equal(t, []string{
		"POST /api/schedules/save",
		"GET /api/schedules",
		"GET /api/schedules/7",
		"GET /api/schedules/season/3",
		"GET /api/schedules/favorites",
		"PUT /api/schedules/7/favorite",
		"PUT /api/schedules/7",
		"DELETE /api/schedules/7",
	}, routes)
	assert.JSONEq(t, `{"name":"Fall"}`, (*calls)[0].body)
	assert.JSONEq(t, `{"name":"Fall v2","description":"less mornings"}`, (*calls)[6].body)
}

func TestCatalogRoutes(t *testing.T) {
	client, calls := newRecordingClient(t)
	c := NewCatalogAPI(client)
	ctx := context.Background()

	_, _ = c.Seasons(ctx)
	_, _ = c.Departments(ctx)
	_, _ = c.Calendar(ctx)
	_, _ = c.AllCourses(ctx, "2025-fall")
	_, _ = c.Courses(ctx, "2025-fall", "cse")
	_, _ = c.GenerateSchedule(ctx, map[string]any{"courses": []string{"CSE101"}})
	_, _ = c.CheckQuotas(ctx, map[string]any{"courses": []string{"CSE101"}})
	_, _ = c.CacheStatus(ctx)
	_, _ = c.RefreshCache(ctx)
	ready, err := c.CacheReady(ctx)
	require.NoError(t, err)
	assert.True(t, ready)

	routes := make([]string, 0, len(*calls))
	for _, c := range *calls {
		routes = append(routes, c.route)
	}
	assert.Equal(t, []string{
		"GET /api/seasons",
		"GET /api/departments",
		"GET /api/calendar",
		"GET /api/courses/2025-fall/all",
		"GET /api/courses/2025-fall/cse",
		"POST /api/schedule/generate",
		"POST /api/quota/check",
		"GET /api/cache/status",
		"POST /api/cache/refresh",
		"GET /api/cache/ready",
	}, routes)
}

func TestPreferencesRoutes(t *testing.T) {
	client, calls := newRecordingClient(t)
	p := NewPreferencesAPI(client)
	ctx := context.Background()

	_, err := p.Get(ctx)
	require.NoError(t, err)
	_, err = p.Put(ctx, map[string]string{"theme": "dark"})
	require.NoError(t, err)
	_, err = p.Patch(ctx, map[string]any{"language": "en"})
	require.NoError(t, err)

	require.Len(t, *calls, 3)
	assert.Equal(t, "GET /api/preferences", (*calls)[0].route)
	assert.Equal(t, "PUT /api/preferences", (*calls)[1].route)
	assert.JSONEq(t, `{"theme":"dark"}`, (*calls)[1].body)
	assert.Equal(t, "PATCH /api/preferences", (*calls)[2].route)
	assert.JSONEq(t, `{"language":"en"}`, (*calls)[2].body)
}
