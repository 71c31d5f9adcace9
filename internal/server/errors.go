package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/recipe-share/internal/crawling"
	"github.com/jonathan/recipe-share/internal/reconcile"
	"github.com/jonathan/recipe-share/internal/search"
)

// StatusClientClosedRequest is reported when the client went away before the response was ready.
const StatusClientClosedRequest = 499

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		fieldErrs  validator.ValidationErrors
		notFound   *search.NotFoundError
		conflict   *reconcile.ConflictError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.As(err, &notFound), crawling.IsNoCandidates(err):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case crawling.IsCatalogUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text safe to return to clients.
func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return http.StatusText(status)
	}
	if status == StatusClientClosedRequest {
		return "request canceled"
	}
	return err.Error()
}
