package companies

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by CompanyError.
const (
	CodeInvalidDocuments         = "INVALID_DOCUMENTS"
	CodeAlreadyExists            = "ALREADY_EXISTS"
	CodeNotFound                 = "NOT_FOUND"
	CodeSubscriptionLimitReached = "SUBSCRIPTION_LIMIT_REACHED"
	// CodeDatabase marks storage failures that do not map to a more specific code.
	CodeDatabase = "DATABASE_ERROR"
)

// ErrSlugTaken is returned by stores when the unique slug constraint rejects an insert.
var ErrSlugTaken = errors.New("company slug already taken")

// CompanyError is the typed error returned by the company and subscription services.
type CompanyError struct {
	Message    string
	Code       string
	StatusCode int
	Err        error
}

func (e *CompanyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CompanyError) Unwrap() error { return e.Err }

// HTTPStatus implements response.DomainError.
func (e *CompanyError) HTTPStatus() int { return e.StatusCode }

// ErrorCode implements response.DomainError.
func (e *CompanyError) ErrorCode() string { return e.Code }

// PublicMessage implements response.DomainError. The underlying cause is left out.
func (e *CompanyError) PublicMessage() string { return e.Message }

// NewError builds a CompanyError without an underlying cause.
func NewError(code string, status int, msg string) *CompanyError {
	return &CompanyError{Message: msg, Code: code, StatusCode: status}
}

func invalid(msg string) *CompanyError {
	return NewError(CodeInvalidDocuments, http.StatusBadRequest, msg)
}

func notFound() *CompanyError {
	return NewError(CodeNotFound, http.StatusNotFound, "company not found")
}

func dbError(msg string, err error) *CompanyError {
	return &CompanyError{Message: msg, Code: CodeDatabase, StatusCode: http.StatusInternalServerError, Err: err}
}

// LimitReached builds the error returned when a quota blocks an action.
func LimitReached(msg string) *CompanyError {
	return NewError(CodeSubscriptionLimitReached, http.StatusForbidden, msg)
}

// IsCode reports whether err is a CompanyError with the given code.
func IsCode(err error, code string) bool {
	var ce *CompanyError
	return errors.As(err, &ce) && ce.Code == code
}
