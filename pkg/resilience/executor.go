// Package resilience provides a generic retry, timeout, and circuit breaker
// executor used to guard fallible operations.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Defaults for the executor. All of them can be overridden per call
// or per executor using options.
const (
	// DefaultMaxAttempts is the number of attempts when retry is enabled.
	DefaultMaxAttempts = 3

	// DefaultAttemptTimeout bounds a single attempt.
	DefaultAttemptTimeout = 30 * time.Second

	// DefaultBaseDelay is the base delay for linear backoff
	// (sleep = attemptIndex * baseDelay between attempts).
	DefaultBaseDelay = 2 * time.Second

	// DefaultBreakerThreshold is the number of consecutive failures after
	// which the circuit breaker opens.
	DefaultBreakerThreshold = 5

	// DefaultBreakerCooldown is how long the breaker stays open after the
	// most recent failure.
	DefaultBreakerCooldown = 5 * time.Minute
)

// BreakerState tracks consecutive failures for a named operation.
type BreakerState struct {
	// FailureCount is the number of consecutive failures.
	FailureCount int

	// LastFailureTime is when the most recent failure occurred
	// (nil if the operation has never failed).
	LastFailureTime *time.Time
}

// Executor runs operations with retry, per-attempt timeout, linear backoff,
// and a circuit breaker keyed by operation name.
//
// Each Executor owns its own breaker table, so tests and independent
// pipelines can use isolated instances instead of sharing process-wide
// mutable state.
//
// Example usage:
//
//	exec := resilience.NewExecutor()
//	result, err := resilience.Execute(ctx, exec, "llm_call",
//	    func(ctx context.Context) (string, error) {
//	        return provider.Generate(ctx, prompt)
//	    },
//	    func() string { return "fallback text" },
//	)
type Executor struct {
	maxAttempts      int
	attemptTimeout   time.Duration
	baseDelay        time.Duration
	breakerThreshold int
	breakerCooldown  time.Duration

	mu       sync.Mutex
	breakers map[string]*BreakerState
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxAttempts sets the number of attempts when retry is enabled.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithAttemptTimeout sets the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.attemptTimeout = d
		}
	}
}

// WithBaseDelay sets the base delay for linear backoff between attempts.
func WithBaseDelay(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.baseDelay = d
		}
	}
}

// WithBreakerThreshold sets the consecutive-failure count that opens the breaker.
func WithBreakerThreshold(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.breakerThreshold = n
		}
	}
}

// WithBreakerCooldown sets how long the breaker stays open after a failure.
func WithBreakerCooldown(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.breakerCooldown = d
		}
	}
}

// NewExecutor creates an Executor with default settings.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		maxAttempts:      DefaultMaxAttempts,
		attemptTimeout:   DefaultAttemptTimeout,
		baseDelay:        DefaultBaseDelay,
		breakerThreshold: DefaultBreakerThreshold,
		breakerCooldown:  DefaultBreakerCooldown,
		breakers:         make(map[string]*BreakerState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecOptions contains per-call settings for Execute.
type ExecOptions struct {
	// RetryEnabled controls whether failed attempts are retried.
	RetryEnabled bool

	// BreakerEnabled controls whether the circuit breaker is consulted.
	BreakerEnabled bool
}

// ExecOption configures a single Execute call.
type ExecOption func(*ExecOptions)

// WithoutRetry disables retries for this call (a single attempt is made).
func WithoutRetry() ExecOption {
	return func(o *ExecOptions) {
		o.RetryEnabled = false
	}
}

// WithoutBreaker disables the circuit breaker check for this call.
func WithoutBreaker() ExecOption {
	return func(o *ExecOptions) {
		o.BreakerEnabled = false
	}
}

// Execute runs op with retry, backoff, per-attempt timeout, and circuit
// breaking, falling back to fallback when all attempts fail or the breaker
// is open.
//
// Behavior:
//  1. If the breaker is enabled and the named operation has failed at least
//     the threshold number of times, with the most recent failure inside the
//     cooldown window, op is never invoked and fallback runs immediately.
//  2. Otherwise op is attempted up to maxAttempts times (1 if retry is
//     disabled), each attempt bounded by the attempt timeout. A timed-out
//     attempt counts as a failure.
//  3. On success the failure counter for the operation name resets to zero
//     and the result is returned.
//  4. Between attempts Execute sleeps attemptIndex * baseDelay, aborting
//     early if ctx is cancelled.
//  5. On exhausting all attempts the failure is recorded and fallback runs
//     (guarded against panics). With no fallback, the zero value and the
//     last error are returned.
//
// The returned error is nil whenever a usable value was produced, including
// via fallback.
func Execute[T any](ctx context.Context, e *Executor, name string, op func(context.Context) (T, error), fallback func() T, opts ...ExecOption) (T, error) {
	var zero T

	options := &ExecOptions{RetryEnabled: true, BreakerEnabled: true}
	for _, opt := range opts {
		opt(options)
	}

	if options.BreakerEnabled && e.breakerOpen(name) {
		if fallback != nil {
			return runFallback(fallback), nil
		}
		return zero, fmt.Errorf("resilience: %s: %w", name, ErrBreakerOpen)
	}

	attempts := e.maxAttempts
	if !options.RetryEnabled {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := runAttempt(ctx, e.attemptTimeout, op)
		if err == nil {
			e.recordSuccess(name)
			return result, nil
		}
		lastErr = err

		if attempt < attempts {
			// Linear backoff, cancellable between attempts.
			select {
			case <-ctx.Done():
				e.recordFailure(name)
				if fallback != nil {
					return runFallback(fallback), nil
				}
				return zero, ctx.Err()
			case <-time.After(time.Duration(attempt) * e.baseDelay):
			}
		}
	}

	e.recordFailure(name)

	if fallback != nil {
		return runFallback(fallback), nil
	}
	return zero, fmt.Errorf("resilience: %s: %w", name, lastErr)
}

// BreakerSnapshot returns a copy of the breaker state for an operation name.
//
// The second return value is false if the operation has never been recorded.
func (e *Executor) BreakerSnapshot(name string) (BreakerState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[name]
	if !ok {
		return BreakerState{}, false
	}
	return *state, true
}

// runAttempt runs a single attempt bounded by the attempt timeout.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type attemptResult struct {
		value T
		err   error
	}

	done := make(chan attemptResult, 1)
	go func() {
		value, err := op(attemptCtx)
		done <- attemptResult{value: value, err: err}
	}()

	select {
	case <-attemptCtx.Done():
		var zero T
		return zero, attemptCtx.Err()
	case res := <-done:
		return res.value, res.err
	}
}

// breakerOpen reports whether the breaker for name is currently open.
func (e *Executor) breakerOpen(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[name]
	if !ok || state.LastFailureTime == nil {
		return false
	}
	if state.FailureCount < e.breakerThreshold {
		return false
	}
	return time.Since(*state.LastFailureTime) < e.breakerCooldown
}

// recordFailure increments the consecutive failure count for name.
func (e *Executor) recordFailure(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[name]
	if !ok {
		state = &BreakerState{}
		e.breakers[name] = state
	}
	now := time.Now()
	state.FailureCount++
	state.LastFailureTime = &now
}

// recordSuccess resets the failure count for name.
func (e *Executor) recordSuccess(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[name]
	if !ok {
		return
	}
	state.FailureCount = 0
	state.LastFailureTime = nil
}

// runFallback invokes fallback, recovering from panics so a broken fallback
// never takes down the caller.
func runFallback[T any](fallback func() T) (result T) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
		}
	}()
	return fallback()
}
