package vpserve

import (
	"errors"
	"net/http"

	"github.com/vplabeler/core/pkg/vperrors"
)

// APIError is the JSON error envelope returned to clients.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string { return e.Message }

// NewAPIError constructs an APIError.
func NewAPIError(code, message string, httpStatus int) *APIError {
	return &APIError{Code: code, Message: message, HTTPStatus: httpStatus}
}

var (
	ErrBadRequest        = NewAPIError("BAD_REQUEST", "invalid request body", http.StatusBadRequest)
	ErrModelUnavailable  = NewAPIError("MODEL_UNAVAILABLE", "no compiled model is available", http.StatusServiceUnavailable)
	ErrInternal          = NewAPIError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrInvalidBatchInput = NewAPIError("INVALID_BATCH_INPUT", "batch request must carry nodes and inputs", http.StatusBadRequest)
)

// translateError maps an evaluator error to an APIError, preserving the
// taxonomy from vperrors where possible.
func translateError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, vperrors.ErrInvalidArgument):
		return NewAPIError("INVALID_ARGUMENT", err.Error(), http.StatusBadRequest)
	case errors.Is(err, vperrors.ErrOutOfRange):
		return NewAPIError("OUT_OF_RANGE", err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, vperrors.ErrUnimplemented):
		return NewAPIError("UNIMPLEMENTED", err.Error(), http.StatusNotImplemented)
	default:
		return NewAPIError("INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
	}
}
