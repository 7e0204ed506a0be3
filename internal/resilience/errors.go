package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// StatusOverloaded is the non-standard status the AI service returns when it
// is temporarily out of capacity.
const StatusOverloaded = 529

// TransientError marks an upstream failure that may succeed on retry.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// temporary is implemented by client errors that know whether they are
// retryable (for example a Places OVER_QUERY_LIMIT status).
type temporary interface {
	Temporary() bool
}

// IsTransient reports whether err, or any error in its chain, is a
// TransientError, a self-described temporary error, or a network failure
// that is usually short-lived.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var tmp temporary
	if errors.As(err, &tmp) && tmp.Temporary() {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		StatusOverloaded:
		return true
	default:
		return false
	}
}

// StatusCode returns the HTTP status attached to a TransientError in err's
// chain, or 0.
func StatusCode(err error) int {
	var te *TransientError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
