package moderation

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by ModerationError.
const (
	CodeNotFound          = "MODERATION_NOT_FOUND"
	CodeAlreadyApproved   = "ALREADY_APPROVED"
	CodeAlreadyRejected   = "ALREADY_REJECTED"
	CodeNotPending        = "NOT_PENDING"
	CodeFailedValidation  = "FAILED_VALIDATION"
	CodeDuplicateDetected = "DUPLICATE_DETECTED"
	CodeUnauthorized      = "MODERATION_UNAUTHORIZED"
	CodeDatabase          = "DATABASE_ERROR"
)

// ModerationError is the typed error returned by the moderation service.
type ModerationError struct {
	Message    string
	Code       string
	StatusCode int
	Err        error
}

func (e *ModerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ModerationError) Unwrap() error { return e.Err }

// HTTPStatus implements response.DomainError.
func (e *ModerationError) HTTPStatus() int { return e.StatusCode }

// ErrorCode implements response.DomainError.
func (e *ModerationError) ErrorCode() string { return e.Code }

// PublicMessage implements response.DomainError. The underlying cause is left out.
func (e *ModerationError) PublicMessage() string { return e.Message }

func newError(code string, status int, msg string) *ModerationError {
	return &ModerationError{Message: msg, Code: code, StatusCode: status}
}

func dbError(msg string, err error) *ModerationError {
	return &ModerationError{Message: msg, Code: CodeDatabase, StatusCode: http.StatusInternalServerError, Err: err}
}

// Duplicate builds the error returned when a submission repeats an existing listing.
func Duplicate(msg string) *ModerationError {
	return newError(CodeDuplicateDetected, http.StatusConflict, msg)
}

// Unauthorized builds the error returned when the caller may not moderate.
func Unauthorized(msg string) *ModerationError {
	return newError(CodeUnauthorized, http.StatusForbidden, msg)
}

// IsCode reports whether err is a ModerationError with the given code.
func IsCode(err error, code string) bool {
	var me *ModerationError
	return errors.As(err, &me) && me.Code == code
}

// Invalid returns a FAILED_VALIDATION error for malformed input.
func Invalid(msg string) *ModerationError {
	return newError(CodeFailedValidation, http.StatusBadRequest, msg)
}

// NotFound returns MODERATION_NOT_FOUND for a missing listing.
func NotFound(msg string) *ModerationError {
	return newError(CodeNotFound, http.StatusNotFound, msg)
}
