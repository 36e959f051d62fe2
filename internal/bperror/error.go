package bperror

import (
	"fmt"
	"net/http"
)

type (
	// A BPError represents the error format that can be rendered by the batchprint server.
	BPError struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Message string `json:"message"`
	}
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if bperr, ok := err.(*BPError); ok && bperr.HTTPCode != 0 {
		return bperr.HTTPCode
	}
	return http.StatusInternalServerError
}

// NotFound returns a new BPError rendered as a 404.
func NotFound(message string) *BPError {
	return &BPError{HTTPCode: http.StatusNotFound, FieldError: err{Message: message}}
}

// Entry returns a new BPError rendered as a 400. It covers malformed or
// unsupported query expressions and invalid entry payloads.
func Entry(message string) *BPError {
	return &BPError{HTTPCode: http.StatusBadRequest, FieldError: err{Message: message}}
}

// Entryf returns a new formatted entry error.
func Entryf(format string, args ...interface{}) *BPError {
	return Entry(fmt.Sprintf(format, args...))
}

// IsNotFound returns true if err is a not found error.
func IsNotFound(e error) bool {
	bperr, ok := e.(*BPError)
	return ok && bperr.HTTPCode == http.StatusNotFound
}

// IsEntry returns true if err is an entry/query validation error.
func IsEntry(e error) bool {
	bperr, ok := e.(*BPError)
	return ok && bperr.HTTPCode == http.StatusBadRequest
}

// Error implements error interface.
func (e *BPError) Error() string {
	return e.FieldError.Message
}
