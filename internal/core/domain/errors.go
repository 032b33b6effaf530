package domain

import (
	"errors"
	"strings"
)

// Common domain errors
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Bill errors
var (
	ErrBillNotFound        = errors.New("bill not found")
	ErrDuplicateBillNumber = errors.New("duplicate bill number")
	ErrExportFailed        = errors.New("bill export failed")
)

// User errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserInactive        = errors.New("user account is inactive")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
)

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the rejected fields of a request
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ExportError wraps a renderer failure for a specific bill
type ExportError struct {
	BillNumber string
	Cause      error
}

func (e *ExportError) Error() string {
	return "export of bill " + e.BillNumber + " failed: " + e.Cause.Error()
}

func (e *ExportError) Unwrap() []error {
	return []error{ErrExportFailed, e.Cause}
}
