package resilience

import "errors"

// Predefined errors for executor failure modes.
var (
	// ErrBreakerOpen indicates the circuit breaker short-circuited the call
	// and no fallback was available.
	ErrBreakerOpen = errors.New("circuit breaker open")
)
