package responses

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation             Kind = "VALIDATION_ERROR"
	KindUnbalancedTransaction  Kind = "UNBALANCED_TRANSACTION"
	KindInvalidAccount         Kind = "INVALID_ACCOUNT"
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	KindConfigurationMissing   Kind = "CONFIGURATION_MISSING"
	KindNotFound               Kind = "NOT_FOUND"
)

// EngineError is the error returned by the ledger, tax and income engines.
// None of them is retryable: they are deterministic given input and stored state.
type EngineError struct {
	Kind           Kind     `json:"kind"`
	Code           int      `json:"code"`
	Message        string   `json:"message"`
	Violations     []string `json:"violations,omitempty"`
	HttpStatusCode int      `json:"-"`
	Err            error    `json:"-"`
}

func (e *EngineError) Error() string {
	msg := e.Message
	if len(e.Violations) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Violations, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Err }

// Is matches any EngineError of the same kind, so callers can compare against the sentinels below.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var ValidationError = &EngineError{
	Kind:           KindValidation,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: http.StatusBadRequest,
}

var UnbalancedTransactionError = &EngineError{
	Kind:           KindUnbalancedTransaction,
	Code:           20,
	Message:        "transaction entries do not balance",
	HttpStatusCode: http.StatusUnprocessableEntity,
}

var InvalidAccountError = &EngineError{
	Kind:           KindInvalidAccount,
	Code:           21,
	Message:        "invalid account",
	HttpStatusCode: http.StatusUnprocessableEntity,
}

var InvalidStateTransitionError = &EngineError{
	Kind:           KindInvalidStateTransition,
	Code:           22,
	Message:        "invalid state transition",
	HttpStatusCode: http.StatusConflict,
}

var ConfigurationMissingError = &EngineError{
	Kind:           KindConfigurationMissing,
	Code:           23,
	Message:        "rate configuration missing",
	HttpStatusCode: http.StatusInternalServerError,
}

var NotFoundError = &EngineError{
	Kind:           KindNotFound,
	Code:           24,
	Message:        "not found",
	HttpStatusCode: http.StatusNotFound,
}

func newError(base *EngineError, message string, violations []string, err error) *EngineError {
	e := *base
	if message != "" {
		e.Message = message
	}
	e.Violations = violations
	e.Err = err
	return &e
}

func NewValidationError(format string, args ...interface{}) *EngineError {
	return newError(ValidationError, fmt.Sprintf(format, args...), nil, nil)
}

func NewValidationErrors(violations []string) *EngineError {
	return newError(ValidationError, "", violations, nil)
}

func NewUnbalancedTransactionError(violations []string) *EngineError {
	return newError(UnbalancedTransactionError, "", violations, nil)
}

func NewInvalidAccountError(format string, args ...interface{}) *EngineError {
	return newError(InvalidAccountError, fmt.Sprintf(format, args...), nil, nil)
}

func NewInvalidStateTransitionError(format string, args ...interface{}) *EngineError {
	return newError(InvalidStateTransitionError, fmt.Sprintf(format, args...), nil, nil)
}

func NewConfigurationMissingError(format string, args ...interface{}) *EngineError {
	return newError(ConfigurationMissingError, fmt.Sprintf(format, args...), nil, nil)
}

func NewNotFoundError(format string, args ...interface{}) *EngineError {
	return newError(NotFoundError, fmt.Sprintf(format, args...), nil, nil)
}

// Violations returns the collected violations of an EngineError anywhere in err's chain.
func Violations(err error) []string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Violations
	}
	return nil
}

type ErrorResponse struct {
	Error          bool     `json:"error"`
	Code           int      `json:"code"`
	Kind           Kind     `json:"kind,omitempty"`
	Message        string   `json:"message"`
	Violations     []string `json:"violations,omitempty"`
	HttpStatusCode int      `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

// ToErrorResponse renders err for a caller. Anything that is not an EngineError is a general server error.
func ToErrorResponse(err error) ErrorResponse {
	var e *EngineError
	if !errors.As(err, &e) {
		return GeneralServerError
	}
	return ErrorResponse{
		Error:          true,
		Code:           e.Code,
		Kind:           e.Kind,
		Message:        e.Message,
		Violations:     e.Violations,
		HttpStatusCode: e.HttpStatusCode,
	}
}

// IsErrAllowedForSentry reports whether err is unexpected enough to be sent to sentry.
// Engine errors are caller or configuration problems, except a missing rate table.
func IsErrAllowedForSentry(err error) bool {
	var e *EngineError
	if !errors.As(err, &e) {
		return true
	}
	return e.Kind == KindConfigurationMissing
}
