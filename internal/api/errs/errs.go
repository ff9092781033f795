// Package errs provides the error envelope returned by the HTTP API.
package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrCode represents an error code in the system.
type ErrCode struct {
	value int
}

// Value returns the integer value of the error code.
func (ec ErrCode) Value() int { return ec.value }

// String returns the string representation of the error code.
func (ec ErrCode) String() string { return codeNames[ec] }

// MarshalText implements the encoding.TextMarshaler interface.
func (ec ErrCode) MarshalText() ([]byte, error) { return []byte(ec.String()), nil }

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (ec *ErrCode) UnmarshalText(data []byte) error {
	code, ok := codeValues[string(data)]
	if !ok {
		return fmt.Errorf("unknown error code %q", data)
	}
	*ec = code
	return nil
}

// The set of error codes the API can return.
var (
	InvalidArgument    = ErrCode{value: 1}
	NotFound           = ErrCode{value: 2}
	FailedPrecondition = ErrCode{value: 3}
	Unavailable        = ErrCode{value: 4}
	Internal           = ErrCode{value: 5}
	Unauthenticated    = ErrCode{value: 6}
)

var codeNames = map[ErrCode]string{
	InvalidArgument:    "invalid_argument",
	NotFound:           "not_found",
	FailedPrecondition: "failed_precondition",
	Unavailable:        "unavailable",
	Internal:           "internal",
	Unauthenticated:    "unauthenticated",
}

var codeValues = func() map[string]ErrCode {
	m := make(map[string]ErrCode, len(codeNames))
	for code, name := range codeNames {
		m[name] = code
	}
	return m
}()

var httpStatus = map[ErrCode]int{
	InvalidArgument:    http.StatusBadRequest,
	NotFound:           http.StatusNotFound,
	FailedPrecondition: http.StatusPreconditionFailed,
	Unavailable:        http.StatusServiceUnavailable,
	Internal:           http.StatusInternalServerError,
	Unauthenticated:    http.StatusUnauthorized,
}

// Error represents an error in the system.
type Error struct {
	Code     ErrCode `json:"code"`
	Message  string  `json:"message"`
	FuncName string  `json:"-"`
	FileName string  `json:"-"`
}

// New constructs an error based on an app error.
func New(code ErrCode, err error) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Code:     code,
		Message:  err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}

// Newf constructs an error based on a error message.
func Newf(code ErrCode, format string, v ...any) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, v...),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Encode implements the web.Encoder interface.
func (e *Error) Encode() ([]byte, string, error) {
	data, err := json.Marshal(e)
	return data, "application/json", err
}

// HTTPStatus implements the web httpStatus interface.
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Equal compares the code and message of two errors.
func (e *Error) Equal(e2 *Error) bool {
	return e.Code == e2.Code && e.Message == e2.Message
}

// IsError tests the concrete error is of the Error type.
func IsError(err error) bool {
	var er *Error
	return errors.As(err, &er)
}

// GetError returns a copy of the Error pointer.
func GetError(err error) *Error {
	var er *Error
	if !errors.As(err, &er) {
		return nil
	}
	return er
}
