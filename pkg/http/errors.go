package http

import (
	"fmt"
	"net/http"
)

const (
	CodeBadRequest = "ERR_BAD_REQUEST"
	CodeInternal   = "ERR_INTERNAL"
)

// AppError is an error the API reports to the caller as-is. Status picks the
// HTTP code; Err is kept for logs and never serialized.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func NewAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithError attaches the cause.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message)
}

func InternalError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, message)
}
