// Package resilience decides which transport failures are worth another
// attempt and spaces those attempts out.
package resilience

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// RetryableError marks a failure the server or network is expected to
// recover from. Status is the HTTP status, or 0 below the HTTP layer.
type RetryableError struct {
	Status int
	Err    error
}

// Retryable marks err as safe to repeat.
func Retryable(err error, status int) *RetryableError {
	return &RetryableError{Status: status, Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// Messages the standard library produces without a typed error.
var flakyMessages = []string{
	"tls handshake timeout",
	"server closed idle connection",
	"temporary failure in name resolution",
}

// IsRetryable reports whether err, or anything it wraps, is a
// RetryableError, a network timeout, a dropped connection or a truncated
// response body.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	for _, target := range []error{
		syscall.ECONNRESET,
		syscall.ECONNREFUSED,
		syscall.ECONNABORTED,
		syscall.EPIPE,
		io.ErrUnexpectedEOF,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range flakyMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// RetryableStatus reports whether an HTTP status signals throttling or a
// temporary server fault.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
