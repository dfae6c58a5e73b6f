// Package http is the JSON surface of the ledger: a chi router, session
// middleware and handlers that translate requests into service calls.
//
// This file holds the response side: a small fluent builder for JSON
// responses and the mapping from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"smartledger/internal/core"
	"smartledger/internal/services"
	"smartledger/internal/storage"
)

// JSONResponseBuilder builds a JSON response.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse starts a 200 response.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. A nil body with a 204 writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil && b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse builds {"error": message} with statusCode.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not found")
}

// UnauthorizedError is the single response for every authentication failure.
func UnauthorizedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "authentication required")
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// validationErrors are reported to the client verbatim with a 400.
var validationErrors = []error{
	core.ErrEmptyMerchant, core.ErrMerchantTooLong, core.ErrInvalidStatus,
	core.ErrInvalidType, core.ErrInvalidDate, core.ErrNoItems, core.ErrInvalidUser,
	core.ErrNegativeBudget, core.ErrInvalidMonth, core.ErrInvalidQty,
	core.ErrInvalidPrice, core.ErrEmptyItemName, core.ErrAmountOverflow,
	core.ErrQtyTooLarge,
	services.ErrInvalidUsername, services.ErrInvalidPassword, services.ErrInvalidName,
}

// errorResponse maps err to a response. Unexpected errors are logged with
// their details and reported generically.
func errorResponse(r *http.Request, err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError()
	case errors.Is(err, services.ErrInvalidCredentials):
		return UnauthorizedError()
	case errors.Is(err, services.ErrUsernameTaken):
		return ErrorResponse(http.StatusConflict, services.ErrUsernameTaken.Error())
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return BadRequestError(v.Error())
		}
	}

	slog.ErrorContext(r.Context(), "Request failed",
		"method", r.Method, "path", r.URL.Path, "error", err)
	return InternalServerError()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(r, err).Write(w)
}
