package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into v, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := httpx.DecodeJSON(r, v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, gatehousesdk.ErrorCodeInvalidRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	httpx.WriteJSON(w, http.StatusUnprocessableEntity, gatehousesdk.ValidationErrorResponse{
		Error:  gatehousesdk.ErrorCodeValidationFailed,
		Fields: fields,
	})
}

// writeServiceError maps service errors to responses. what names the
// resource for 404 and 409 messages, e.g. "Role".
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, what string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeValidation(w, ve.Fields)
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, gatehousesdk.ErrorCodeNotFound, what+" not found")
	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, gatehousesdk.ErrorCodeConflict, what+" already exists")
	case errors.Is(err, service.ErrNoCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, gatehousesdk.ErrorCodeGoogleNotConnected, "The user has not connected a Google account")
	case errors.Is(err, service.ErrInvalidProxyRequest):
		httpx.WriteError(w, http.StatusBadRequest, gatehousesdk.ErrorCodeInvalidRequest, err.Error())
	default:
		slogx.FromContext(r.Context()).Error("request failed", "resource", what, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, gatehousesdk.ErrorCodeServerError, "Internal server error")
	}
}
