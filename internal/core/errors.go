// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenRevoked  = errors.New("token revoked")
	ErrInternalError = errors.New("internal error")
)

// AppError is an error that already knows how it should be rendered to a
// client.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func ConflictError(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
	}
}

func UnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
	}
}

func ForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
		Code:       "FORBIDDEN",
	}
}

func TokenExpiredError() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Message:    "token has expired",
		StatusCode: http.StatusUnauthorized,
		Code:       "TOKEN_EXPIRED",
	}
}

func TokenInvalidError() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Message:    "token is invalid",
		StatusCode: http.StatusUnauthorized,
		Code:       "TOKEN_INVALID",
	}
}

func TokenRevokedError() *AppError {
	return &AppError{
		Err:        ErrTokenRevoked,
		Message:    "token has been revoked",
		StatusCode: http.StatusUnauthorized,
		Code:       "TOKEN_REVOKED",
	}
}
