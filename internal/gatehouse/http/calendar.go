package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// UpstreamHeader marks responses whose status and body come from Google.
const UpstreamHeader = "X-Gatehouse-Upstream"

type CalendarHandler struct {
	Calendar *service.CalendarService
}

// HandleProxy godoc
//
//	@Summary		Proxy a Google Calendar API call
//	@Description	Forwards the call with the user's Google credentials, refreshing them when close to expiry
//	@Description	and retrying once after a 401. Google's status and body are passed through.
//	@Tags			Google
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		gatehousesdk.ProxyRequest	true	"Method, path relative to calendar/v3, query and JSON body"
//	@Success		200		{object}	object						"Google's response"
//	@Failure		400		{object}	gatehousesdk.ErrorResponse	"bad method, path or query"
//	@Failure		401		{object}	gatehousesdk.ErrorResponse	"token refused or Google not connected"
//	@Router			/v1/google/calendar/proxy [post].
func (h *CalendarHandler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	var req gatehousesdk.ProxyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	query, err := queryValues(req.Query)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, gatehousesdk.ErrorCodeInvalidRequest, err.Error())
		return
	}

	res, err := h.Calendar.Invoke(r.Context(), userActor(r).User.ID, service.ProxyRequest{
		Method: req.Method,
		Path:   req.Path,
		Query:  query,
		Body:   req.JSON,
	})
	if err != nil {
		writeServiceError(w, r, err, "Calendar resource")
		return
	}

	writeUpstream(w, res)
}

// HandleMeet godoc
//
//	@Summary		Create a Google Meet meeting
//	@Description	Creates an event on the user's primary calendar with a Meet conference attached.
//	@Tags			Google
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		gatehousesdk.MeetingRequest	true	"Event details"
//	@Success		200		{object}	object							"The created event"
//	@Failure		401		{object}	gatehousesdk.ErrorResponse		"token refused or Google not connected"
//	@Failure		422		{object}	gatehousesdk.ValidationErrorResponse
//	@Failure		default	{object}	gatehousesdk.MeetingErrorResponse	"Google refused; status is Google's"
//	@Router			/v1/google/meet [post].
func (h *CalendarHandler) HandleMeet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req gatehousesdk.MeetingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m := toMeeting(req)
	if err := m.Validate(); err != nil {
		writeServiceError(w, r, err, "Meeting")
		return
	}

	res, err := h.Calendar.CreateMeeting(ctx, userActor(r).User.ID, m)
	if err != nil {
		writeServiceError(w, r, err, "Meeting")
		return
	}

	if !res.Successful() {
		slogx.FromContext(ctx).Warn("meeting creation refused", "status", res.StatusCode)
		details := json.RawMessage(res.Body)
		if !json.Valid(details) {
			details, _ = json.Marshal(string(res.Body))
		}
		w.Header().Set(UpstreamHeader, "google")
		httpx.WriteJSON(w, res.StatusCode, gatehousesdk.MeetingErrorResponse{
			Error:   "Failed to create the Google Meet meeting.",
			Details: details,
		})
		return
	}

	res.StatusCode = http.StatusOK
	writeUpstream(w, res)
}

func writeUpstream(w http.ResponseWriter, res *service.ProviderResponse) {
	ct := res.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	httpx.NoCache(w)
	w.Header().Set("Content-Type", ct)
	w.Header().Set(UpstreamHeader, "google")
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write(res.Body)
}

func toMeeting(req gatehousesdk.MeetingRequest) service.MeetingRequest {
	m := service.MeetingRequest{
		Summary:     req.Summary,
		Description: req.Description,
	}
	if req.Start != nil {
		m.Start = &service.EventTime{DateTime: req.Start.DateTime, TimeZone: req.Start.TimeZone}
	}
	if req.End != nil {
		m.End = &service.EventTime{DateTime: req.End.DateTime, TimeZone: req.End.TimeZone}
	}
	for _, a := range req.Attendees {
		m.Attendees = append(m.Attendees, service.Attendee{Email: a.Email})
	}
	return m
}

// queryValues flattens a JSON query object. Values may be scalars or
// arrays of scalars; arrays repeat the key.
func queryValues(in map[string]any) (url.Values, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(url.Values, len(in))
	for k, v := range in {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				s, err := scalar(k, item)
				if err != nil {
					return nil, err
				}
				out.Add(k, s)
			}
			continue
		}
		s, err := scalar(k, v)
		if err != nil {
			return nil, err
		}
		out.Set(k, s)
	}
	return out, nil
}

func scalar(key string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("query parameter %q must be a string, number, boolean or a list of those", key)
	}
}
