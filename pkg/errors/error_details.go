package errors

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-facing error message.
	// E.g. "insufficient funds to cover order".
	Message string

	// Code (required) is the machine-readable error code string.
	// E.g. "insufficient_funds".
	Code string

	// Field (optional) is the related field the error occurred on, if any.
	Field string

	// Object (optional) is the related object the error occurred on, if any.
	Object interface{}
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
	}
}

// NewErrorDetailsWithObject creates a new ErrorDetails struct with an associated object.
func NewErrorDetailsWithObject(message, code, field string, object interface{}) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
		Object:  object,
	}
}

// NewCoded is shorthand for an ErrorDetails carrying only a message and code.
func NewCoded(message string, code ErrorCode) *ErrorDetails {
	return NewErrorDetails(message, string(code), "")
}

// Error is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// ErrorCodeEquals checks whether a given `error` has a specific code, unwrapping
// tracers along the way.
func ErrorCodeEquals(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the error code from err, or the empty code if none is attached.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if details, ok := err.(*ErrorDetails); ok {
			return ErrorCode(details.Code)
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}
