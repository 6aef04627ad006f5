package gatehousesdk

import (
	"context"
	"net/http"
)

// ProxyCalendar forwards a calendar API call on behalf of the token's
// user. Provider statuses come back in the ProviderResponse; only failures
// of the service itself are errors.
func (c *Client) ProxyCalendar(ctx context.Context, req ProxyRequest) (*ProviderResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/google/calendar/proxy", req, true)
	if err != nil {
		return nil, err
	}
	if resp.Header.Get("X-Gatehouse-Upstream") == "" {
		return nil, decodeJSON(resp, nil, 0)
	}
	return passthrough(resp)
}

// CreateMeeting creates a calendar event with a video conference attached.
func (c *Client) CreateMeeting(ctx context.Context, req MeetingRequest) (*ProviderResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/google/meet", req, true)
	if err != nil {
		return nil, err
	}
	if resp.Header.Get("X-Gatehouse-Upstream") == "" {
		return nil, decodeJSON(resp, nil, 0)
	}
	return passthrough(resp)
}
