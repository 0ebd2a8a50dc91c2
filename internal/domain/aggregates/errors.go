package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies why an OKR write or read was refused.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"

	// OKR business-rule rejections. None of them leave a write behind.
	CodeFrozen               ErrorCode = "frozen"
	CodeInvalidIndex         ErrorCode = "invalid_index"
	CodeInvalidMetric        ErrorCode = "invalid_metric"
	CodeCannotRegress        ErrorCode = "cannot_regress"
	CodeAlreadyComplete      ErrorCode = "already_complete"
	// CodeConsistencyViolation means stored state is broken, e.g. a parent link to a
	// corporate objective that no longer exists. It is an operator problem, not a caller one.
	CodeConsistencyViolation ErrorCode = "consistency_violation"
)

// Retryable reports whether callers may safely retry an operation failing with code.
func (c ErrorCode) Retryable() bool {
	return c == CodeRetryable || c == CodeConflict
}

// Rejection reports whether code is an expected refusal of caller input or of a business
// rule, as opposed to a store or consistency failure.
func (c ErrorCode) Rejection() bool {
	switch c {
	case CodeValidation, CodeNotFound, CodePreconditionFailed,
		CodeFrozen, CodeInvalidIndex, CodeInvalidMetric, CodeCannotRegress, CodeAlreadyComplete:
		return true
	default:
		return false
	}
}

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}
