package backup

import "fmt"

// ErrorKind classifies a backup failure for user-facing reporting.
type ErrorKind string

const (
	KindFileSystem    ErrorKind = "FILE_SYSTEM"
	KindDatabase      ErrorKind = "DATABASE"
	KindSerialization ErrorKind = "SERIALIZATION"
	KindPermission    ErrorKind = "PERMISSION"
	KindValidation    ErrorKind = "VALIDATION"
	KindUnknown       ErrorKind = "UNKNOWN"
)

// Error pairs a user-facing message with the underlying cause. The message is
// safe to show; the cause goes to the log.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func wrapErr(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}
