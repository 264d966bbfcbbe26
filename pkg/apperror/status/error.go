package status

import "errors"

// ErrorCode is a numeric code to classify API errors in a stable way
type ErrorCode int

// Reserved ranges:
//   0-999:     client/validation errors
//   1000-1999: internal errors
const (
	BadRequestBase    ErrorCode = 0
	InternalErrorBase ErrorCode = 1000
)

const (
	InvalidRequestBody ErrorCode = BadRequestBase + iota // 0
	MissingParams                                        // 1
	InvalidSection                                       // 2
	InvalidParams                                        // 3
	NotFound                                             // 4
	ForbiddenSource                                      // 5
)

const (
	Internal          ErrorCode = InternalErrorBase + iota // 1000
	GenerationFailed                                       // 1001
	RetrievalFailed                                        // 1002
	IngestFailed                                           // 1003
	StorageFailed                                          // 1004
	DependencyOffline                                      // 1005
)

// CodedError represents an error with an associated ErrorCode
type CodedError interface {
	error
	ErrorCode() ErrorCode
}

type codedError struct {
	code ErrorCode
	err  error
}

func (e codedError) Error() string        { return e.err.Error() }
func (e codedError) Unwrap() error        { return e.err }
func (e codedError) ErrorCode() ErrorCode { return e.code }

// New creates a new CodedError with the given code and underlying error
func New(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return codedError{code: code, err: err}
}

// CodeOf returns the code carried by err, or fallback.
func CodeOf(err error, fallback ErrorCode) ErrorCode {
	var ce CodedError
	if errors.As(err, &ce) {
		return ce.ErrorCode()
	}
	return fallback
}
