package judge

import (
	"errors"
	"fmt"
)

const (
	CodeThrottling         = "ThrottlingException"
	CodeServiceUnavailable = "ServiceUnavailableException"
)

// ErrParse marks model output that could not be turned into a judgment.
var ErrParse = errors.New("malformed judgment response")

// ErrPanic marks a judgment attempt that panicked.
var ErrPanic = errors.New("judgment panicked")

// codedError is implemented by inference errors that carry a service error
// code, such as smithy.APIError.
type codedError interface {
	error
	ErrorCode() string
}

// ErrorCode returns the service error code carried by err, or "".
func ErrorCode(err error) string {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.ErrorCode()
	}
	return ""
}

// IsRateLimited reports whether err is a throttling or transient
// unavailability response from the inference endpoint.
func IsRateLimited(err error) bool {
	switch ErrorCode(err) {
	case CodeThrottling, CodeServiceUnavailable:
		return true
	default:
		return false
	}
}

func parseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
