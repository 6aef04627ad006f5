package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNoCredentials means the user never connected the provider, or the
	// stored token could not be made usable.
	ErrNoCredentials = errors.New("no_credentials")

	ErrInvalidProxyRequest = errors.New("invalid_proxy_request")
	ErrNotFound            = errors.New("not_found")
	ErrConflict            = errors.New("conflict")
)

// ValidationError collects per-field messages for a request body.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
