package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ScheduleAPI is a thin passthrough over the saved-schedule routes.
type ScheduleAPI struct {
	client *Client
}

func NewScheduleAPI(client *Client) *ScheduleAPI {
	return &ScheduleAPI{client: client}
}

func (s *ScheduleAPI) raw(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.client.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ScheduleAPI) Save(ctx context.Context, schedule any) (json.RawMessage, error) {
	return s.raw(ctx, http.MethodPost, "/schedules/save", schedule)
}

func (s *ScheduleAPI) List(ctx context.Context) (json.RawMessage, error) {
	return s.raw(ctx, http.MethodGet, "/schedules", nil)
}

func (s *ScheduleAPI) Get(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.raw(ctx, http.MethodGet, fmt.Sprintf("/schedules/%d", id), nil)
}

func (s *ScheduleAPI) BySeason(ctx context.Context, seasonID int64) (json.RawMessage, error) {
	return s.raw(ctx, http.MethodGet, fmt.Sprintf("/schedules/season/%d", seasonID), nil)
}

func (s *ScheduleAPI) Favorites(ctx context.Context) (json.RawMessage, error) {
	return s.raw(ctx, http.MethodGet, "/schedules/favorites", nil)
}

func (s *ScheduleAPI) ToggleFavorite(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.raw(ctx, http.MethodPut, fmt.Sprintf("/schedules/%d/favorite", id), nil)
}

func (s *ScheduleAPI) Update(ctx context.Context, id int64, name, description string) (json.RawMessage, error) {
	body := map[string]string{"name": name, "description": description}
	return s.raw(ctx, http.MethodPut, fmt.Sprintf("/schedules/%d", id), body)
}

func (s *ScheduleAPI) Delete(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.raw(ctx, http.MethodDelete, fmt.Sprintf("/schedules/%d", id), nil)
}
