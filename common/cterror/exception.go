package cterror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exception is the error returned for catalogued failures.
type Exception struct {
	Err     Error
	Message string
	Cause   error
}

func NewException(e Error, format string, args ...interface{}) *Exception {
	return &Exception{Err: e, Message: fmt.Sprintf(format, args...)}
}

// WrapException attaches the catalog entry e to cause.
func WrapException(cause error, e Error, format string, args ...interface{}) *Exception {
	return &Exception{Err: e, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (ex *Exception) Error() string {
	msg := fmt.Sprintf("CTException: EC(%d) %s", ex.Err.Code, ex.Err.Desc)
	if ex.Message != "" {
		msg += ": " + ex.Message
	}
	if ex.Cause != nil {
		msg += ": " + ex.Cause.Error()
	}
	return msg
}

func (ex *Exception) Unwrap() error {
	return ex.Cause
}

func (ex *Exception) Code() int {
	return ex.Err.Code
}

// AsException returns the outermost Exception in err's chain.
func AsException(err error) (*Exception, bool) {
	var ex *Exception
	if errors.As(err, &ex) {
		return ex, true
	}
	return nil, false
}

// HasCode reports whether any Exception in err's chain carries e.
func HasCode(err error, e Error) bool {
	for err != nil {
		ex, ok := AsException(err)
		if !ok {
			return false
		}
		if ex.Err.Code == e.Code {
			return true
		}
		err = ex.Cause
	}
	return false
}
