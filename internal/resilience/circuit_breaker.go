package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen is returned without calling the transport while the breaker is open.
	ErrCircuitOpen = gobreaker.ErrOpenState
	// ErrTooManyTrialCalls is returned when half-open trial slots are exhausted.
	ErrTooManyTrialCalls = gobreaker.ErrTooManyRequests
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

func mapState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

type CircuitBreakerSettings struct {
	Name                     string
	SlidingWindowSize        int
	MinimumCalls             int
	FailureRateThreshold     int // в процентах
	WaitDurationInOpenState  time.Duration
	PermittedCallsInHalfOpen int
	OnStateChange            func(name string, from, to State)
	Logger                   *slog.Logger
}

func SettingsFromConfig(cfg *config.Config, name string) CircuitBreakerSettings {
	return CircuitBreakerSettings{
		Name:                     name,
		SlidingWindowSize:        cfg.CBSlidingWindowSize,
		MinimumCalls:             cfg.CBMinimumRequiredCalls,
		FailureRateThreshold:     cfg.CBFailureRateThreshold,
		WaitDurationInOpenState:  cfg.CBWaitDurationInOpenState,
		PermittedCallsInHalfOpen: cfg.CBPermittedCallsInHalfOpen,
	}
}

// CircuitBreaker guards the primary transport. gobreaker drives the
// OPEN/HALF_OPEN cycle; the decision to trip is taken over a count-based
// window of the most recent outcomes observed while closed.
type CircuitBreaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker
	window *slidingWindow
}

func NewCircuitBreaker(s CircuitBreakerSettings) *CircuitBreaker {
	if s.SlidingWindowSize <= 0 {
		s.SlidingWindowSize = 10
	}

	if s.MinimumCalls <= 0 {
		s.MinimumCalls = 1
	}

	if s.MinimumCalls > s.SlidingWindowSize {
		s.MinimumCalls = s.SlidingWindowSize
	}

	if s.FailureRateThreshold <= 0 || s.FailureRateThreshold > 100 {
		s.FailureRateThreshold = 50
	}

	if s.WaitDurationInOpenState <= 0 {
		s.WaitDurationInOpenState = 10 * time.Second
	}

	if s.PermittedCallsInHalfOpen <= 0 {
		s.PermittedCallsInHalfOpen = 1
	}

	window := newSlidingWindow(s.SlidingWindowSize)

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: uint32(s.PermittedCallsInHalfOpen), //nolint:gosec // G115: Значение из конфига
		Timeout:     s.WaitDurationInOpenState,
		ReadyToTrip: func(_ gobreaker.Counts) bool {
			calls, failures := window.snapshot()
			return calls >= s.MinimumCalls && failures*100 >= s.FailureRateThreshold*calls
		},
		IsSuccessful: func(err error) bool {
			window.record(err != nil)
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateClosed {
				window.reset()
			}

			fromState, toState := mapState(from), mapState(to)

			if s.Logger != nil {
				s.Logger.Warn("Изменение состояния circuit breaker",
					"name", name,
					"from", fromState.String(),
					"to", toState.String(),
				)
			}

			if s.OnStateChange != nil {
				s.OnStateChange(name, fromState, toState)
			}
		},
	}

	return &CircuitBreaker{
		name:   s.Name,
		cb:     gobreaker.NewCircuitBreaker(settings),
		window: window,
	}
}

// Execute runs call unless the breaker rejects it. A rejection is reported
// as ErrCircuitOpen or ErrTooManyTrialCalls and call is not invoked.
func (b *CircuitBreaker) Execute(ctx context.Context, call func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, call(ctx)
	})

	return err
}

func (b *CircuitBreaker) State() State {
	return mapState(b.cb.State())
}

func (b *CircuitBreaker) Name() string {
	return b.name
}

// IsRejected reports whether err is a short-circuit produced by a breaker.
func IsRejected(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyTrialCalls)
}

type slidingWindow struct {
	mu       sync.Mutex
	outcomes []bool
	next     int
	count    int
	failures int
}

func newSlidingWindow(size int) *slidingWindow {
	return &slidingWindow{outcomes: make([]bool, size)}
}

func (w *slidingWindow) record(failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count == len(w.outcomes) {
		if w.outcomes[w.next] {
			w.failures--
		}
	} else {
		w.count++
	}

	w.outcomes[w.next] = failed
	if failed {
		w.failures++
	}

	w.next = (w.next + 1) % len(w.outcomes)
}

func (w *slidingWindow) snapshot() (calls, failures int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.count, w.failures
}

func (w *slidingWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.outcomes {
		w.outcomes[i] = false
	}

	w.next, w.count, w.failures = 0, 0, 0
}
