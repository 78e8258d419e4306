// Package server provides the HTTP REST API for the document tailor.
package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/doc-tailor/internal/job"
	"github.com/jonathan/doc-tailor/internal/pipeline"
)

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var validationErr *pipeline.ValidationError
	var notFoundErr *job.NotFoundError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
