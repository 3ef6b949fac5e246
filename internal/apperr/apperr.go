// Package apperr defines the closed set of caller-visible failures and maps
// them onto HTTP responses in one place.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
)

// Error is a failure the caller is allowed to see. Detail is optional and is
// serialized as-is (field maps for validation, the conflicting key, ...).
type Error struct {
	Kind    Kind
	Message string
	Detail  any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, msg string, detail ...any) *Error {
	e := &Error{Kind: kind, Message: msg}
	if len(detail) > 0 {
		e.Detail = detail[0]
	}
	return e
}

func Validation(msg string, detail ...any) *Error { return newError(KindValidation, msg, detail...) }
func NotFound(msg string, detail ...any) *Error   { return newError(KindNotFound, msg, detail...) }
func Forbidden(msg string, detail ...any) *Error  { return newError(KindForbidden, msg, detail...) }
func Conflict(msg string, detail ...any) *Error   { return newError(KindConflict, msg, detail...) }

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Status returns the HTTP status for a kind.
func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindForbidden:
		return fiber.StatusForbidden
	case KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
