// Package errors defines the failure taxonomy of the emulated API. Every
// failure carries a human-readable message, a stable machine code that
// serializes into the service's error envelope, and the HTTP status the
// transport layer responds with.
package errors

import (
	"errors"
	"net/http"
)

type RequestError struct {
	Message    string
	Code       string
	StatusCode int
}

func (e *RequestError) Error() string {
	return e.Message
}

// New builds a one-off RequestError. Predeclared vars and constructors in
// this package should cover every documented failure; New exists for the
// transport edge (malformed envelopes, unknown operations).
func New(message, code string, status int) *RequestError {
	return &RequestError{Message: message, Code: code, StatusCode: status}
}

// StatusCode maps any error to the HTTP status to respond with.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Code extracts the stable machine code, or the generic service fault.
func Code(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Code
	}
	return "AWS.MechanicalTurk.ServiceFault"
}
