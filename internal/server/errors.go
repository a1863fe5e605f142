package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/embedding"
	"github.com/jonathan/candidate-pipeline/internal/fetch"
	"github.com/jonathan/candidate-pipeline/internal/ingestion"
	"github.com/jonathan/candidate-pipeline/internal/llm"
	"github.com/jonathan/candidate-pipeline/internal/parsing"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error returned by a pipeline run.
// Stage errors are unwrapped, so the cause decides.
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		fieldErrs     validator.ValidationErrors
		noParseErr    *embedding.NoParsedResumeError
		downloadErr   *fetch.DownloadError
		extractionErr *ingestion.ExtractionError
		schemaErr     *parsing.SchemaValidationError
		upstreamErr   *llm.UpstreamServiceError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.As(err, &noParseErr):
		return http.StatusConflict
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &downloadErr):
		if downloadErr.Retryable() {
			return http.StatusBadGateway
		}
		// The résumé URL itself is bad
		return http.StatusUnprocessableEntity
	case errors.As(err, &extractionErr), errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
