package k8s

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/clusteraudit/clusteraudit/internal/pkg/metrics"
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open: cluster API unavailable")

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState int

const (
	StateClosed   CircuitBreakerState = iota // Normal operation
	StateOpen                                // Circuit is open, failing fast
	StateHalfOpen                            // Testing if the API server recovered
)

// CircuitBreaker implements a circuit breaker for the guarded Kubernetes API
// call paths. After 5 consecutive retryable failures the circuit opens for
// 30 seconds, so a dead API server fails fast instead of stalling the scan
// on every call.
type CircuitBreaker struct {
	mu sync.RWMutex

	failureThreshold int
	openDuration     time.Duration
	halfOpenMaxCalls int

	state             CircuitBreakerState
	failureCount      int
	lastFailureTime   time.Time
	halfOpenCallCount int
	lastStateChange   time.Time
}

// NewCircuitBreaker creates a circuit breaker with default settings.
func NewCircuitBreaker() *CircuitBreaker {
	cb := &CircuitBreaker{
		failureThreshold: 5,
		openDuration:     30 * time.Second,
		halfOpenMaxCalls: 1,
		state:            StateClosed,
		lastStateChange:  time.Now(),
	}
	metrics.CircuitBreakerState.Set(float64(StateClosed))
	return cb
}

// setState updates the circuit breaker state and records metrics.
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	if cb.state != newState {
		metrics.CircuitBreakerTransitionsTotal.WithLabelValues(stateToString(cb.state), stateToString(newState)).Inc()
		metrics.CircuitBreakerState.Set(float64(newState))

		cb.state = newState
		cb.lastStateChange = time.Now()
	}
}

func stateToString(state CircuitBreakerState) string {
	switch state {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Execute runs fn with circuit breaker protection.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	cb.mu.RLock()
	state := cb.state
	cb.mu.RUnlock()

	switch state {
	case StateOpen:
		// Check if we should transition to half-open
		cb.mu.Lock()
		if time.Since(cb.lastFailureTime) >= cb.openDuration {
			cb.setState(StateHalfOpen)
			cb.halfOpenCallCount = 0
			state = StateHalfOpen
		}
		cb.mu.Unlock()

		if state == StateOpen {
			return ErrCircuitOpen
		}
		// Fall through to half-open logic

	case StateHalfOpen:
		cb.mu.Lock()
		if cb.halfOpenCallCount >= cb.halfOpenMaxCalls {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.halfOpenCallCount++
		cb.mu.Unlock()
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		if isRetryableError(err) {
			cb.failureCount++
			cb.lastFailureTime = time.Now()
			metrics.CircuitBreakerFailuresTotal.Inc()

			if cb.state == StateHalfOpen {
				// Half-open call failed, go back to open
				cb.setState(StateOpen)
				cb.halfOpenCallCount = 0
			} else if cb.failureCount >= cb.failureThreshold {
				cb.setState(StateOpen)
				cb.lastFailureTime = time.Now()
			}
		} else {
			// Non-retryable error (e.g. 404, 403), reset failure count
			cb.failureCount = 0
		}
		return err
	}

	// Success: reset failure count and close circuit if it was open/half-open
	cb.failureCount = 0
	if cb.state != StateClosed {
		cb.setState(StateClosed)
		cb.halfOpenCallCount = 0
	}

	return nil
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// FailureCount returns the current failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failureCount
}

// isRetryableError reports whether an error counts toward opening the
// circuit: context timeouts, 5xx/429 API errors, and network failures.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	if isRetryable(err) {
		return true
	}

	errStr := err.Error()
	return containsAny(errStr, []string{
		"connection refused",
		"connection reset",
		"timeout",
		"network",
		"unreachable",
		"no such host",
		"dial tcp",
		"i/o timeout",
	})
}

// containsAny checks if a string contains any of the substrings.
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
