package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeDuplicate    Code = "DUPLICATE"
	CodeConflict     Code = "CONFLICT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvariant    Code = "INVARIANT_VIOLATION"
	CodeUpload       Code = "UPLOAD_FAILED"
	CodeUnauthorized Code = "UNAUTHORIZED"
)

var statusMap = map[Code]int{
	CodeValidation:   http.StatusBadRequest,
	CodeDuplicate:    http.StatusConflict,
	CodeConflict:     http.StatusConflict,
	CodeNotFound:     http.StatusNotFound,
	CodeInvariant:    http.StatusInternalServerError,
	CodeUpload:       http.StatusBadGateway,
	CodeUnauthorized: http.StatusUnauthorized,
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Status 返回该错误对应的HTTP状态码，传输层用它做映射
func (e *Error) Status() int {
	if s, ok := statusMap[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

func Duplicate(message string) *Error {
	return &Error{Code: CodeDuplicate, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Invariant(message string) *Error {
	return &Error{Code: CodeInvariant, Message: message}
}

func Upload(message string, cause error) *Error {
	return &Error{Code: CodeUpload, Message: message, cause: cause}
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func IsValidation(err error) bool { return Is(err, CodeValidation) }

func IsDuplicate(err error) bool { return Is(err, CodeDuplicate) }

func IsConflict(err error) bool { return Is(err, CodeConflict) }

func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

func IsInvariant(err error) bool { return Is(err, CodeInvariant) }
