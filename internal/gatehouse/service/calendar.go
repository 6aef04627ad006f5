package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/metrics"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// DefaultCalendarBaseURL is the provider's calendar API root.
const DefaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// maxProviderBody caps how much of a provider response is buffered.
const maxProviderBody = 10 << 20

// CredentialSource is the part of CredentialRefresher the invoker uses.
type CredentialSource interface {
	EnsureLiveAccessToken(ctx context.Context, userID string) (string, error)
	ForceRefresh(ctx context.Context, userID string) (string, error)
	HasRefreshToken(ctx context.Context, userID string) (bool, error)
	CurrentAccessToken(ctx context.Context, userID string) (string, error)
}

// ProxyRequest is a call to forward to the calendar API. Path is relative
// to the API root.
type ProxyRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   json.RawMessage
	Header http.Header
}

// ProviderResponse is the provider's answer, passed through verbatim.
type ProviderResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *ProviderResponse) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CalendarService forwards calls to the calendar API on behalf of a user,
// retrying once with refreshed credentials after a 401.
type CalendarService struct {
	Credentials CredentialSource
	BaseURL     string
	Client      *http.Client
	Timeout     time.Duration
	Metrics     *metrics.Metrics

	// NewRequestID returns the conference create-request id. Defaults to
	// "meet_" followed by a random UUID.
	NewRequestID func() string
}

var proxyMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Invoke forwards req. It fails with ErrNoCredentials when the user has no
// usable provider token; provider error statuses are returned, not errors.
func (s *CalendarService) Invoke(ctx context.Context, userID string, req ProxyRequest) (*ProviderResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if !proxyMethods[method] {
		return nil, fmt.Errorf("%w: unsupported method %q", ErrInvalidProxyRequest, req.Method)
	}

	target, err := s.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	return s.call(ctx, userID, method, target, req.Body, req.Header)
}

func (s *CalendarService) baseURL() string {
	if s.BaseURL == "" {
		return DefaultCalendarBaseURL
	}
	return strings.TrimRight(s.BaseURL, "/")
}

// resolve joins path onto the API root. Paths that would escape the root
// or smuggle a query or fragment are refused.
func (s *CalendarService) resolve(path string, query url.Values) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidProxyRequest)
	}
	if strings.ContainsAny(path, "?#\\") || strings.Contains(path, "://") {
		return "", fmt.Errorf("%w: path must be a plain relative path", ErrInvalidProxyRequest)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." || seg == "." {
			return "", fmt.Errorf("%w: path must not contain dot segments", ErrInvalidProxyRequest)
		}
	}

	target := s.baseURL() + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target, nil
}

func (s *CalendarService) call(ctx context.Context, userID, method, target string, body []byte, header http.Header) (*ProviderResponse, error) {
	l := slogx.FromContext(ctx)

	token, err := s.Credentials.EnsureLiveAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoCredentials
	}

	resp, err := s.do(ctx, method, target, body, header, token)
	if err != nil {
		return nil, err
	}
	s.Metrics.ProviderRequest(resp.StatusCode, false)

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	hasRefresh, err := s.Credentials.HasRefreshToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !hasRefresh {
		return resp, nil
	}

	l.Info("provider returned 401; refreshing credentials and retrying once", slog.String("user_id", userID))

	token, err = s.Credentials.ForceRefresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		// Refresh was refused; retry with whatever is stored so the caller
		// sees the provider's verdict.
		if token, err = s.Credentials.CurrentAccessToken(ctx, userID); err != nil {
			return nil, err
		}
	}

	resp, err = s.do(ctx, method, target, body, header, token)
	if err != nil {
		return nil, err
	}
	s.Metrics.ProviderRequest(resp.StatusCode, true)
	return resp, nil
}

func (s *CalendarService) do(ctx context.Context, method, target string, body []byte, header http.Header, token string) (*ProviderResponse, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultOutboundTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rdr io.Reader
	if len(body) > 0 {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	for k, vs := range header {
		if http.CanonicalHeaderKey(k) == "Authorization" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if rdr != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxProviderBody))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	return &ProviderResponse{StatusCode: res.StatusCode, Header: res.Header.Clone(), Body: data}, nil
}

// EventTime is a calendar event boundary.
type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Attendee struct {
	Email string `json:"email"`
}

// MeetingRequest is the event a video meeting is attached to.
type MeetingRequest struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       *EventTime `json:"start"`
	End         *EventTime `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// Validate returns a *ValidationError listing every bad field.
func (m MeetingRequest) Validate() error {
	var ve ValidationError

	switch {
	case strings.TrimSpace(m.Summary) == "":
		ve.add("summary", "The summary field is required.")
	case utf8.RuneCountInString(m.Summary) > 255:
		ve.add("summary", "The summary may not be greater than 255 characters.")
	}

	start, startOK := parseEventTime(&ve, "start", m.Start)
	end, endOK := parseEventTime(&ve, "end", m.End)
	if startOK && endOK && !end.After(start) {
		ve.add("end.dateTime", "The end date time must be a date after start date time.")
	}

	for i, a := range m.Attendees {
		addr, err := mail.ParseAddress(a.Email)
		if err != nil || addr.Address != strings.TrimSpace(a.Email) {
			ve.add(fmt.Sprintf("attendees.%d.email", i), "The email must be a valid email address.")
		}
	}

	return ve.orNil()
}

func parseEventTime(ve *ValidationError, field string, t *EventTime) (time.Time, bool) {
	if t == nil || strings.TrimSpace(t.DateTime) == "" {
		ve.add(field+".dateTime", "The "+field+" date time field is required.")
		return time.Time{}, false
	}

	if ts, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
		return ts, true
	}

	// Zone-less times are interpreted in the event's timeZone.
	loc := time.UTC
	if t.TimeZone != "" {
		l, err := time.LoadLocation(t.TimeZone)
		if err != nil {
			ve.add(field+".timeZone", "The "+field+" time zone is not a valid zone.")
			return time.Time{}, false
		}
		loc = l
	}
	ts, err := time.ParseInLocation("2006-01-02T15:04:05", t.DateTime, loc)
	if err != nil {
		ve.add(field+".dateTime", "The "+field+" date time is not a valid date.")
		return time.Time{}, false
	}
	return ts, true
}

type conferenceSolutionKey struct {
	Type string `json:"type"`
}

type createRequest struct {
	RequestID             string                `json:"requestId"`
	ConferenceSolutionKey conferenceSolutionKey `json:"conferenceSolutionKey"`
}

type conferenceData struct {
	CreateRequest createRequest `json:"createRequest"`
}

type meetingPayload struct {
	MeetingRequest
	ConferenceData conferenceData `json:"conferenceData"`
}

// CreateMeeting creates an event on the user's primary calendar with a
// video conference attached. The request must already be validated.
func (s *CalendarService) CreateMeeting(ctx context.Context, userID string, m MeetingRequest) (*ProviderResponse, error) {
	requestID := "meet_" + uuid.NewString()
	if s.NewRequestID != nil {
		requestID = s.NewRequestID()
	}

	body, err := json.Marshal(meetingPayload{
		MeetingRequest: m,
		ConferenceData: conferenceData{
			CreateRequest: createRequest{
				RequestID:             requestID,
				ConferenceSolutionKey: conferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode meeting: %w", err)
	}

	target := s.baseURL() + "/calendars/primary/events?conferenceDataVersion=1"
	return s.call(ctx, userID, http.MethodPost, target, body, nil)
}
