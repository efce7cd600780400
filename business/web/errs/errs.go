// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// NewLedger wraps an error returned by the ledger with the HTTP status code
// that matches its kind. Errors of an unknown kind are returned as is so
// they are reported as internal errors.
func NewLedger(err error) error {
	switch {
	case errors.Is(err, database.ErrInvalidInput):
		return NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, database.ErrSealingTimeout):
		return NewTrusted(err, http.StatusServiceUnavailable)

	case errors.Is(err, database.ErrStorageUnavailable):
		return NewTrusted(err, http.StatusServiceUnavailable)

	case errors.Is(err, database.ErrInvalidChain):
		return NewTrusted(err, http.StatusConflict)
	}

	return err
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap provides support for errors.Is against the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}
