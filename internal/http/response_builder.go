// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for JSON responses: every reply
// is either the requested data, a message object, or an error object.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"atlas/internal/core"
	"atlas/internal/log"
)

const genericInternalError = "internal server error"

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
	fields     map[string]any
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the body to v, replacing any message fields.
func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	b.data = v
	b.fields = nil
	return b
}

// Message sets the "message" field of an object body.
func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	return b.Field("message", msg)
}

// Field adds one key to an object body.
func (b *ResponseBuilder) Field(key string, value any) *ResponseBuilder {
	if b.fields == nil {
		b.fields = make(map[string]any)
	}
	b.data = nil
	b.fields[key] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	body := b.data
	if b.fields != nil {
		body = b.fields
	}

	w.WriteHeader(b.statusCode)
	if body == nil || b.statusCode == http.StatusNoContent {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		Field("error", message)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func ForbiddenError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusForbidden, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, genericInternalError)
}

// errorResponseFor maps a domain error onto its HTTP reply. Anything
// unrecognized becomes a 500 whose detail only reaches the log.
func errorResponseFor(err error) *ResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return BadRequestError(ve.Msg)
	case errors.Is(err, core.ErrValidation):
		return BadRequestError(err.Error())
	case errors.Is(err, core.ErrConflict):
		return BadRequestError("resource already exists")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, core.ErrUnauthorized):
		return UnauthorizedError("unauthorized")
	case errors.Is(err, core.ErrForbidden):
		return ForbiddenError("forbidden")
	default:
		return InternalServerError()
	}
}

// respondError writes the reply for err and logs server-side failures with
// the request's logger.
func respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := errorResponseFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())
	}
	resp.Write(w)
}
