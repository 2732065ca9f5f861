// errors.go - Typed API errors and the handler adapter that renders them.
//
// Handlers return an error; handle() maps it to a status code and a
// {ok:false, message} body. Internal causes are logged, never sent.
package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"file-intake/internal/storage"
)

type errorKind string

const (
	kindAuthentication errorKind = "authentication"
	kindAuthorization  errorKind = "authorization"
	kindValidation     errorKind = "validation"
	kindNotFound       errorKind = "not_found"
	kindInvalidInput   errorKind = "invalid_input"
	kindTooLarge       errorKind = "too_large"
	kindRateLimited    errorKind = "rate_limited"
	kindUnavailable    errorKind = "unavailable"
	kindInternal       errorKind = "internal"
)

func (k errorKind) status() int {
	switch k {
	case kindAuthentication, kindAuthorization:
		return http.StatusUnauthorized
	case kindValidation, kindInvalidInput:
		return http.StatusBadRequest
	case kindNotFound:
		return http.StatusNotFound
	case kindTooLarge:
		return http.StatusRequestEntityTooLarge
	case kindRateLimited:
		return http.StatusTooManyRequests
	case kindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type apiError struct {
	kind       errorKind
	message    string
	cause      error
	retryAfter time.Duration
}

func (e *apiError) Error() string {
	if e.cause != nil {
		return string(e.kind) + ": " + e.message + ": " + e.cause.Error()
	}
	return string(e.kind) + ": " + e.message
}

func (e *apiError) Unwrap() error { return e.cause }

func authenticationError(msg string) *apiError {
	return &apiError{kind: kindAuthentication, message: msg}
}

func authorizationError(msg string) *apiError {
	return &apiError{kind: kindAuthorization, message: msg}
}

func validationError(msg string) *apiError {
	return &apiError{kind: kindValidation, message: msg}
}

func notFoundError(msg string) *apiError {
	return &apiError{kind: kindNotFound, message: msg}
}

func invalidInputError(msg string) *apiError {
	return &apiError{kind: kindInvalidInput, message: msg}
}

func tooLargeError(msg string, cause error) *apiError {
	return &apiError{kind: kindTooLarge, message: msg, cause: cause}
}

func rateLimitedError(msg string, retryAfter time.Duration) *apiError {
	return &apiError{kind: kindRateLimited, message: msg, retryAfter: retryAfter}
}

func internalError(msg string, cause error) *apiError {
	return &apiError{kind: kindInternal, message: msg, cause: cause}
}

// storageError reports a failed store call; an open storage circuit is a 503.
func storageError(msg string, cause error) *apiError {
	if errors.Is(cause, storage.ErrUnavailable) {
		return &apiError{kind: kindUnavailable, message: "storage temporarily unavailable", cause: cause}
	}
	return internalError(msg, cause)
}

// okResponse is the body of operations that only acknowledge success.
type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts a handlerFunc to http.Handler.
func (s *Server) handle(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.writeError(w, r, err)
		}
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apiError
	if !errors.As(err, &ae) {
		ae = internalError("internal server error", err)
	}
	s.metrics.errors.WithLabelValues(string(ae.kind)).Inc()

	attrs := []any{
		"rid", RequestIDFromContext(r.Context()),
		"error_type", ae.kind,
		"method", r.Method,
		"path", r.URL.Path,
		"status", ae.kind.status(),
	}
	switch ae.kind {
	case kindInternal, kindUnavailable:
		if ae.cause != nil {
			attrs = append(attrs, "cause", ae.cause)
		}
		s.logger.Error(ae.message, attrs...)
	case kindRateLimited, kindAuthentication:
		s.logger.Warn(ae.message, attrs...)
	default:
		s.logger.Info(ae.message, attrs...)
	}

	if ae.retryAfter > 0 {
		secs := int(math.Ceil(ae.retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSON(w, ae.kind.status(), errorResponse{OK: false, Message: ae.message})
}
