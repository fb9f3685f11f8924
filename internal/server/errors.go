// Package server provides the HTTP API and provider webhooks for call jobs.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/procurement-caller/internal/catalog"
	"github.com/jonathan/procurement-caller/internal/jobs"
	"github.com/jonathan/procurement-caller/internal/orchestrator"
)

// ErrValidation indicates a malformed request body or parameter.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnavailable indicates an optional backend that is not configured.
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not available", e.Feature)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		unavail    *ErrUnavailable
		request    *orchestrator.ValidationError
		noMatch    *catalog.NoMatchError
		badCSV     *catalog.CSVError
		notFound   *jobs.NotFoundError
		duplicate  *jobs.DuplicateError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &request), errors.As(err, &badCSV):
		return http.StatusBadRequest
	case errors.As(err, &noMatch):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &unavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
