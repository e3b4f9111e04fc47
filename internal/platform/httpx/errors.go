package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/platform/cache"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a client-facing message alongside one of the sentinel kinds.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound builds an ErrNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Invalid builds an ErrValidation error.
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Duplicate builds an ErrDuplicate error.
func Duplicate(format string, args ...any) error {
	return &Error{Kind: ErrDuplicate, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds an ErrConflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

// Forbidden builds an ErrForbidden error.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

// MsgInternal is the only message clients see for server-side failures.
const MsgInternal = "Internal server error."

// Status maps err to its HTTP status and client-facing message.
func Status(err error) (int, string) {
	if ae, ok := shared.AsAuthError(err); ok {
		return http.StatusUnauthorized, ae.Message()
	}
	if ze, ok := shared.AsAuthzError(err); ok {
		return http.StatusForbidden, ze.Message()
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, validationMessage(verrs)
	}
	msg := func(fallback string) string {
		var he *Error
		if errors.As(err, &he) && he.Msg != "" {
			return he.Msg
		}
		return fallback
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, msg("Resource not found.")
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, msg("Duplicate entry.")
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, msg("Conflict.")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict, "Request already processed."
	case errors.Is(err, cache.ErrLocked):
		return http.StatusConflict, "Resource is busy, retry shortly."
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, msg("Validation failed.")
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, msg("Access denied.")
	case errors.Is(err, ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized, msg("Invalid email or password.")
	}
	return http.StatusInternalServerError, MsgInternal
}

// RespondError maps domain errors to failure envelopes. Server-side failures are logged
// and never echoed to the client.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, message := Status(err)
	if status >= http.StatusInternalServerError && logger != nil {
		attrs := []any{slog.Any("error", err)}
		var se *docstore.StorageError
		if errors.As(err, &se) {
			attrs = append(attrs, slog.String("collection", se.Collection), slog.String("id", se.ID), slog.String("op", se.Op))
		}
		logger.Error("request failed", attrs...)
	}
	Fail(w, status, message)
}

// Bind decodes the JSON body into target and validates it.
func Bind(r *http.Request, v *validator.Validate, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return Invalid("Invalid request body: %s", err.Error())
	}
	return Validate(v, target)
}

// Validate checks target against its validate tags. A nil validator accepts everything.
func Validate(v *validator.Validate, target any) error {
	if v == nil {
		return nil
	}
	if err := v.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Invalid("%s", validationMessage(verrs))
		}
		return Invalid("%s", err.Error())
	}
	return nil
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeField(fe))
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}
