package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeConfig            ErrCode = "CONFIG_ERROR"
	ErrCodeRemoteUnavailable ErrCode = "REMOTE_UNAVAILABLE"
	ErrCodeStoreUnavailable  ErrCode = "STORE_UNAVAILABLE"
	ErrCodeMalformedData     ErrCode = "MALFORMED_DATA"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error for a single field
func NewConfigError(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfig,
		Message: fmt.Sprintf("%s: %s", field, message),
	}
}

// NewRemoteUnavailable creates an error for a failed remote API unit
func NewRemoteUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeRemoteUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewStoreUnavailable creates an error for a failed store operation
func NewStoreUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeStoreUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewMalformedData creates an error for unexpected remote data. It is
// treated like a remote failure for the unit that produced it.
func NewMalformedData(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedData,
		Message: message,
		Err:     err,
	}
}

func hasCode(err error, code ErrCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsConfigError checks if the error is a configuration error
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeConfig)
}

// IsRemoteUnavailable checks if the error is a remote failure
func IsRemoteUnavailable(err error) bool {
	return hasCode(err, ErrCodeRemoteUnavailable) || hasCode(err, ErrCodeMalformedData)
}

// IsStoreUnavailable checks if the error is a store failure
func IsStoreUnavailable(err error) bool {
	return hasCode(err, ErrCodeStoreUnavailable)
}
