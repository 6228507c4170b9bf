package fetch

import (
	"fmt"
	"time"
)

// Kind partitions fetch failures for retry decisions and failure reports.
type Kind string

const (
	KindTimeout Kind = "timeout"
	KindNetwork Kind = "network_error"
	KindHTTP    Kind = "http_error"
)

// Error is the typed failure value returned by the fetcher. All failures
// cross the fetch boundary as values of this type; nothing panics past it.
type Error struct {
	Kind       Kind
	StatusCode int           // set when Kind is KindHTTP
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("http_error:%d", e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: timeouts, network
// errors, 429, and 5xx are worth another attempt; other HTTP statuses are not.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTP:
		return e.StatusCode == 429 || e.StatusCode >= 500
	}
	return false
}
