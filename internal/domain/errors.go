package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes failure semantics across the paper engine.
type ErrorCode string

const (
	CodeValidation            ErrorCode = "validation"
	CodeNotFound              ErrorCode = "not_found"
	CodeConflict              ErrorCode = "conflict"
	CodePreconditionFailed    ErrorCode = "precondition_failed"
	CodeInsufficientInventory ErrorCode = "insufficient_inventory"
	CodeRetryable             ErrorCode = "retryable"
	CodeInternal              ErrorCode = "internal"
)

// Error is the canonical error wrapper carried across repos and services.
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

// NewError builds an error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code, preserving the cause chain.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// CodeOf extracts the error code when available.
func CodeOf(err error) ErrorCode {
	var de *Error
	if !errors.As(err, &de) {
		return ""
	}
	return de.Code
}

func Validationf(op, format string, args ...any) error {
	return NewError(CodeValidation, op, fmt.Sprintf(format, args...), nil)
}

func NotFoundf(op, format string, args ...any) error {
	return NewError(CodeNotFound, op, fmt.Sprintf(format, args...), nil)
}

func Conflictf(op, format string, args ...any) error {
	return NewError(CodeConflict, op, fmt.Sprintf(format, args...), nil)
}

func PreconditionFailedf(op, format string, args ...any) error {
	return NewError(CodePreconditionFailed, op, fmt.Sprintf(format, args...), nil)
}

// InsufficientInventoryf names the section and shortfall so callers can adjust
// the blueprint or the bank instead of receiving a truncated paper.
func InsufficientInventoryf(op, section string, shortfall int) error {
	return NewError(CodeInsufficientInventory, op,
		fmt.Sprintf("section %q is short %d eligible question(s)", section, shortfall), nil)
}
