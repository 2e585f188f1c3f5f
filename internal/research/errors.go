package research

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited is returned when the outbound limiter denies a submission.
// The caller sees the rejection immediately; nothing is queued or retried.
var ErrRateLimited = errors.New("research: provider rate limit reached")

// ErrNotFound is returned by stores and registries for unknown ids.
var ErrNotFound = errors.New("research: not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// ValidationError reports bad input rejected before any provider work is
// submitted. Missing lists the specific fields or template variables.
type ValidationError struct {
	Reason  string
	Missing []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: missing %s", e.Reason, strings.Join(e.Missing, ", "))
}

// ProviderError reports a task the provider rejected: its status code reached
// the configured error threshold.
type ProviderError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider: %s returned %d: %s", e.Endpoint, e.Code, e.Message)
}

// TransportError reports a network or timeout failure talking to the
// provider or the summarizer. Workflows treat it like a provider failure.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that a WaitForAll budget elapsed before every id
// resolved. Pending names the ids still outstanding when time ran out.
type TimeoutError struct {
	Op      string
	Pending []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out with %d unresolved: %s", e.Op, len(e.Pending), strings.Join(e.Pending, ", "))
}
