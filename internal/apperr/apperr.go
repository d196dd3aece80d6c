// Package apperr содержит типизированные ошибки сервиса и их
// соответствие HTTP-статусам.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind перечисляет категории ошибок уровня приложения.
type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindInvalidArgument Kind = "invalid_argument"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

// Error несет категорию, сообщение для клиента и исходную причину.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New создает ошибку с заданной категорией и сообщением.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind)
	}
	return &Error{kind: kind, message: message}
}

// Wrap создает ошибку, сохраняя исходную причину для errors.Is/As.
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

// Kind возвращает категорию ошибки.
func (e *Error) Kind() Kind { return e.kind }

// Message возвращает сообщение, предназначенное клиенту.
func (e *Error) Message() string { return e.message }

// StatusCode сопоставляет категорию ошибки с HTTP-статусом.
func (e *Error) StatusCode() int {
	switch e.kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Unauthorized(message string) *Error    { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error       { return New(KindForbidden, message) }
func NotFound(message string) *Error        { return New(KindNotFound, message) }
func InvalidArgument(message string) *Error { return New(KindInvalidArgument, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }
func Internal(message string) *Error        { return New(KindInternal, message) }

// From приводит любой error к *Error, оборачивая неожиданные во внутренние.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(KindInternal, "internal error", err)
}

// IsKind сообщает, относится ли ошибка к указанной категории.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.kind == kind
}
