package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("invalid input")
	ErrPermission      = errors.New("permission denied")
	ErrNotFound        = errors.New("resource not found")
	ErrDuplicate       = errors.New("duplicate")
	ErrWindowClosed    = errors.New("voting window closed")
	ErrExternalService = errors.New("external service unavailable")
	ErrStorage         = errors.New("storage failure")
)

// AppError carries a user-facing message alongside the classified cause.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// New creates a new AppError
func New(kind error, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func Validation(message string) error { return New(ErrValidation, message, nil) }

func Permission(message string) error { return New(ErrPermission, message, nil) }

func NotFound(message string) error { return New(ErrNotFound, message, nil) }

func Duplicate(message string) error { return New(ErrDuplicate, message, nil) }

// External wraps a failed call to a third-party service.
func External(service string, err error) error {
	return New(ErrExternalService, service, err)
}

// Storage wraps a database failure.
func Storage(op string, err error) error {
	return New(ErrStorage, op, err)
}

// UserMessage maps an error to the text shown in chat.
func UserMessage(err error) string {
	var appErr *AppError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWindowClosed):
		return "⏰ Voting for this submission has closed."
	case errors.Is(err, ErrDuplicate):
		if errors.As(err, &appErr) && appErr.Message != "" {
			return "⚠️ " + appErr.Message
		}
		return "⚠️ Already done."
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPermission), errors.Is(err, ErrNotFound):
		if errors.As(err, &appErr) && appErr.Message != "" {
			return "❌ " + appErr.Message
		}
		return "❌ " + err.Error()
	case errors.Is(err, ErrExternalService):
		return "⚠️ That service is unavailable right now, try again later."
	case errors.Is(err, ErrStorage):
		return "⚠️ Something went wrong saving that. Nothing was recorded."
	default:
		return "⚠️ Something went wrong."
	}
}

// IsKind reports whether err is classified as any of kinds.
func IsKind(err error, kinds ...error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
