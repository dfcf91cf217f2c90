package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Codes carried by AppError. Each maps to one HTTP status in StatusFor.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeForbidden    = "FORBIDDEN"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorBody is the RealWorld error envelope: {"errors":{"body":[...]}}.
type ErrorBody struct {
	Body []string `json:"body"`
}

type ErrorResponse struct {
	Errors ErrorBody `json:"errors"`
	Code   string    `json:"code,omitempty"`
}

// AppError is an error a handler can report to the client. Err is the
// underlying cause and is only logged.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func appError(code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// NewNotFoundError reports "<resource> <id> not found".
func NewNotFoundError(resource string, id any) *AppError {
	return appError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, id))
}

func NewValidationError(msg string) *AppError   { return appError(CodeValidation, msg) }
func NewBadRequestError(msg string) *AppError   { return appError(CodeBadRequest, msg) }
func NewForbiddenError(msg string) *AppError    { return appError(CodeForbidden, msg) }
func NewUnauthorizedError(msg string) *AppError { return appError(CodeUnauthorized, msg) }

// NewInternalError hides err behind a generic message.
func NewInternalError(err error) *AppError {
	e := appError(CodeInternal, "Internal server error")
	e.Err = err
	return e
}

func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	ok := errors.As(err, &target)
	return target, ok
}

func IsNotFound(err error) bool {
	e, ok := AsAppError(err)
	return ok && e.Code == CodeNotFound
}

// StatusFor maps a code to its HTTP status. Unknown codes are 500.
func StatusFor(code string) int {
	switch code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeValidation:
		return fiber.StatusUnprocessableEntity
	case CodeBadRequest:
		return fiber.StatusBadRequest
	case CodeForbidden, CodeUnauthorized:
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

// RespondWithError writes err in the error envelope. For an AppError only
// Message reaches the client, never the wrapped cause.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var resp ErrorResponse
	if e, ok := AsAppError(err); ok {
		resp.Errors.Body, resp.Code = []string{e.Message}, e.Code
	} else {
		resp.Errors.Body = []string{err.Error()}
	}
	return c.Status(status).JSON(resp)
}
