package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the circuit is open and the cooldown has not
// elapsed. Callers treat it like any other upstream failure.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state.
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
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker short-circuits calls to a failing upstream. It opens after
// tripAfter consecutive failures, stays open for cooldown, then admits probe
// calls in half-open state and closes again after closeAfter consecutive
// probe successes.
type Breaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	probeHits     int
	openedAt      time.Time
	tripAfter     int
	closeAfter    int
	cooldown      time.Duration
	onStateChange func(from, to State)
}

// Config holds breaker parameters. Zero values fall back to defaults.
type Config struct {
	TripAfter     int           // consecutive failures before opening (default 5)
	CloseAfter    int           // consecutive half-open successes before closing (default 2)
	Cooldown      time.Duration // open duration before probing (default 30s)
	OnStateChange func(from, to State)
}

// New creates a closed Breaker with the given config.
func New(cfg Config) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 5
	}
	if cfg.CloseAfter <= 0 {
		cfg.CloseAfter = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		state:         StateClosed,
		tripAfter:     cfg.TripAfter,
		closeAfter:    cfg.CloseAfter,
		cooldown:      cfg.Cooldown,
		onStateChange: cfg.OnStateChange,
	}
}

// Do runs fn when the circuit admits it and records the outcome. When the
// circuit is open within the cooldown, fn is not run and ErrOpen is returned.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}
	if time.Since(b.openedAt) < b.cooldown {
		return ErrOpen
	}
	b.transition(StateHalfOpen)
	b.probeHits = 0
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.tripAfter {
			b.transition(StateOpen)
			b.openedAt = time.Now()
			b.failures = 0
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.probeHits++
		if b.probeHits >= b.closeAfter {
			b.transition(StateClosed)
			b.probeHits = 0
		}
	}
}

// transition changes state and fires the callback. Must hold mu.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}

// State returns the current state (for metrics and health reporting).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
