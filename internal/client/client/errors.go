package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/waitx"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")

	// ErrPDFNotReady means the backend has not finished generating the PDF.
	ErrPDFNotReady = fmt.Errorf("document pdf is not generated yet: %w", waitx.ErrNotReady)
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is maps the status code onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrValidation:
		return e.Status == http.StatusUnprocessableEntity
	}
	return false
}

// FieldErrors returns the per-field messages of a validation failure.
func (e *APIError) FieldErrors() models.FieldErrors {
	return models.FieldErrors(e.Errors)
}

// errorBody is what the backend puts in an error response.
type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func newAPIError(status int, body errorBody) *APIError {
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("API Error: %d %s", status, http.StatusText(status))
	}
	return &APIError{Status: status, Message: msg, Errors: body.Errors}
}

// NetworkError is a request that received no response.
type NetworkError struct {
	APIURL string
	Err    error
}

func (e *NetworkError) Error() string {
	return "Network error: cannot reach backend. API URL: " + e.APIURL
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrUnavailable
}
