package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
	"github.com/wellspringapp/wellspring-server/internal/store"
)

// APIError is the body of every non-2xx response.
type APIError struct { //nolint:revive // matches the client SDK name
	status  int
	Code    string `json:"code" doc:"Machine-readable error code" example:"NOT_FOUND"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Per-field validation messages"`
}

func (e *APIError) Error() string  { return e.Message }
func (e *APIError) GetStatus() int { return e.status }

func (e *APIError) ContentType(string) string { return "application/json" }

func newAPIError(code domainerrors.Code, message string, details any) *APIError {
	return &APIError{status: code.HTTPStatus(), Code: string(code), Message: message, Details: details}
}

var codeByStatus = map[int]domainerrors.Code{
	http.StatusBadRequest:          domainerrors.CodeValidation,
	http.StatusUnprocessableEntity: domainerrors.CodeValidation,
	http.StatusUnauthorized:        domainerrors.CodeUnauthorized,
	http.StatusForbidden:           domainerrors.CodeForbidden,
	http.StatusNotFound:            domainerrors.CodeNotFound,
	http.StatusConflict:            domainerrors.CodeConflict,
	http.StatusTooManyRequests:     domainerrors.CodeRateLimited,
	http.StatusServiceUnavailable:  domainerrors.CodeTimeout,
	http.StatusGatewayTimeout:      domainerrors.CodeTimeout,
}

// RegisterErrorHandler replaces huma.NewError so handler errors and huma's
// own failures share the APIError shape. Must run before routes are
// registered. With production set, INTERNAL messages are masked.
func RegisterErrorHandler(production bool) {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := translate(err, production); apiErr != nil {
				return apiErr
			}
		}

		code, ok := codeByStatus[status]
		if !ok {
			code = domainerrors.CodeInternal
		}
		if code != domainerrors.CodeValidation {
			return &APIError{status: status, Code: string(code), Message: message}
		}

		// Request validation: huma reports 422 with one detail per field.
		fields := map[string]string{}
		for _, err := range errs {
			if d := (*huma.ErrorDetail)(nil); errors.As(err, &d) {
				fields[d.Location] = d.Message
			}
		}
		apiErr := newAPIError(domainerrors.CodeValidation, message, nil)
		if len(fields) > 0 {
			apiErr.Details = fields
		}
		return apiErr
	}
}

// translate returns nil for errors with no known mapping.
func translate(err error, production bool) *APIError {
	var de *domainerrors.Error
	switch {
	case errors.As(err, &de):
		msg := de.Message
		if production && de.Code == domainerrors.CodeInternal {
			msg = "internal server error"
		}
		return newAPIError(de.Code, msg, de.Details)
	case errors.Is(err, store.ErrNotFound):
		return newAPIError(domainerrors.CodeNotFound, "not found", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(domainerrors.CodeTimeout, "request timed out", nil)
	}
	return nil
}
