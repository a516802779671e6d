package errcode

import (
	"fmt"
	"sync"
)

// ErrorCode represents the error type. The errors are serialized via
// strings and the integer value is never exposed to clients.
type ErrorCode int

// ErrorDescriptor provides relevant information about a given
// ErrorCode.
type ErrorDescriptor struct {
	// Code is the error code that this descriptor describes.
	Code ErrorCode

	// Value provides a unique, string key, often captured in caps,
	// that identifies the error code. This value is used as the
	// keyword for encoding errors as JSON.
	Value string

	// Message is a short, human readable description of the error
	// condition. This is not intended to be specific to a given
	// failure, such as a particular path or value, but rather for the
	// error code in general.
	Message string
}

// ErrorCoder is implemented by error types that can be represented by
// an ErrorCode.
type ErrorCoder interface {
	ErrorCode() ErrorCode
}

var (
	errorCodeToDescriptors = map[ErrorCode]ErrorDescriptor{}
	idToDescriptors        = map[string]ErrorDescriptor{}
	groupToDescriptors     = map[string][]ErrorDescriptor{}
	mu                     sync.Mutex
)

var nextCode = 1000

// register returns a new ErrorCode descriptor under the given group,
// assigning it the next free numeric value from one counter shared by
// all groups. Groups are purely organizational: they let a reader see at
// a glance which subsystem a given error belongs to, but do not reserve a
// numeric range.
func register(group, value, message string) ErrorCode {
	mu.Lock()
	defer mu.Unlock()

	code := ErrorCode(nextCode)
	nextCode++

	descriptor := ErrorDescriptor{
		Code:    code,
		Value:   value,
		Message: message,
	}
	errorCodeToDescriptors[code] = descriptor
	idToDescriptors[value] = descriptor
	groupToDescriptors[group] = append(groupToDescriptors[group], descriptor)

	return code
}

// ParseErrorCode attempts to parse the given string as an ErrorCode,
// falling back to ErrorCodeUnknown if the string is not registered.
func ParseErrorCode(value string) ErrorCode {
	desc, ok := idToDescriptors[value]
	if !ok {
		return ErrorCodeUnknown
	}
	return desc.Code
}

// Descriptor returns the descriptor for the given error code.
func (ec ErrorCode) Descriptor() ErrorDescriptor {
	d, ok := errorCodeToDescriptors[ec]
	if !ok {
		return errorCodeToDescriptors[ErrorCodeUnknown]
	}
	return d
}

// String returns the canonical identifier for this error code, suitable
// for serialization.
func (ec ErrorCode) String() string {
	return ec.Descriptor().Value
}

// Message returned the human-readable error message for this code.
func (ec ErrorCode) Message() string {
	return ec.Descriptor().Message
}

// MarshalText encodes the receiver into UTF-8-encoded text and returns
// the result.
func (ec ErrorCode) MarshalText() (text []byte, err error) {
	return []byte(ec.String()), nil
}

// UnmarshalText decodes the form generated by MarshalText.
func (ec *ErrorCode) UnmarshalText(text []byte) error {
	desc, ok := idToDescriptors[string(text)]
	if !ok {
		return fmt.Errorf("errcode: unknown error code %q", text)
	}
	*ec = desc.Code
	return nil
}

// Error provides a wrapper around ErrorCode with extra Detail and
// Message fields, the way a single code can be raised with different
// contextual information each time without needing a new code per call
// site.
type Error struct {
	Code    ErrorCode
	Message string
	Detail  interface{}
}

// ErrorCode implements the ErrorCoder interface.
func (e Error) ErrorCode() ErrorCode {
	return e.Code
}

// Error returns a human readable representation of the error.
func (e Error) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Detail)
	}
	return e.Message
}

// WithArgs constructs a new Error populating the Detail field, leaving
// the registered Message text untouched, so a caller can attach the
// libpath, file name, or other value implicated in the failure without
// having to format it into the message itself.
func (ec ErrorCode) WithArgs(args ...interface{}) Error {
	return Error{
		Code:    ec,
		Message: ec.Message(),
		Detail:  fmt.Sprint(args...),
	}
}

// WithDetail constructs a new Error populating the Detail field with a
// single structured value, for callers that want to attach something
// richer than a formatted string.
func (ec ErrorCode) WithDetail(detail interface{}) Error {
	return Error{
		Code:    ec,
		Message: ec.Message(),
		Detail:  detail,
	}
}

// Errors provides the envelope for multiple errors returned by a
// single operation, e.g. a parse pass that keeps going past the first
// failure to report as many problems as it can in one run.
type Errors []error

func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return "<nil>"
	case 1:
		return errs[0].Error()
	default:
		msg := fmt.Sprintf("%d errors occurred:\n", len(errs))
		for _, err := range errs {
			msg += fmt.Sprintf("\t* %s\n", err.Error())
		}
		return msg
	}
}
