package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
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

// CircuitBreaker fails fast after MaxFailures consecutive failures until
// Timeout has passed, then lets probe calls through. It never retries.
type CircuitBreaker struct {
	name          string
	maxFailures   int
	timeout       time.Duration
	probes        int
	now           func() time.Time
	countsAsFail  func(error) bool
	onStateChange func(name string, from, to State)

	mu       sync.Mutex
	state    State
	failures int
	passed   int
	openedAt time.Time
}

type CircuitBreakerConfig struct {
	Name        string
	MaxFailures int
	Timeout     time.Duration
	// Probes is the number of successful half-open calls needed to close again.
	Probes int
	// IsFailure decides which errors trip the breaker. Context cancellation never does.
	IsFailure     func(error) bool
	OnStateChange func(name string, from, to State)
	Now           func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(error) bool { return true }
	}

	return &CircuitBreaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		timeout:       cfg.Timeout,
		probes:        cfg.Probes,
		now:           cfg.Now,
		countsAsFail:  cfg.IsFailure,
		onStateChange: cfg.OnStateChange,
		state:         StateClosed,
	}
}

func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	var change func()
	defer func() {
		cb.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			return ErrCircuitOpen
		}
		change = cb.transitionTo(StateHalfOpen)
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	var change func()
	defer func() {
		cb.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	if err == nil {
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.passed++
			if cb.passed >= cb.probes {
				change = cb.transitionTo(StateClosed)
			}
		}
		return
	}

	if errors.Is(err, context.Canceled) || !cb.countsAsFail(err) {
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.maxFailures {
			change = cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		change = cb.transitionTo(StateOpen)
	}
}

// transitionTo must be called with mu held. The returned callback runs after unlock.
func (cb *CircuitBreaker) transitionTo(next State) func() {
	prev := cb.state
	cb.state = next
	cb.failures = 0
	cb.passed = 0
	if next == StateOpen {
		cb.openedAt = cb.now()
	}

	if cb.onStateChange == nil || prev == next {
		return nil
	}
	name, hook := cb.name, cb.onStateChange
	return func() { hook(name, prev, next) }
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.passed = 0
}

func (cb *CircuitBreaker) Stats() (state State, failures int, openedAt time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state, cb.failures, cb.openedAt
}
