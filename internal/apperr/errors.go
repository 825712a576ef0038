// Package apperr holds the error taxonomy shared by the settlement pipeline
// and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation marks malformed or missing request fields. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown transaction, asset or resource.
	ErrNotFound = errors.New("not found")
	// ErrSignature marks a webhook whose signature did not verify.
	ErrSignature = errors.New("invalid signature")
	// ErrProcessorUnavailable means the processor could not be asked. The
	// transaction stays pending and the caller may retry.
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	// ErrDispatch means a control command was not accepted by the ingress.
	ErrDispatch = errors.New("control dispatch failed")
	// ErrInvalidResourceConfig is returned for resources whose unit price
	// cannot produce a duration.
	ErrInvalidResourceConfig = errors.New("invalid resource configuration")
)

// HTTPStatus maps an error from the settlement path to a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSignature):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProcessorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
