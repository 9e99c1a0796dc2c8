package delivery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"marketplaceDelivery/internal/db"
	"marketplaceDelivery/internal/logging"
	"marketplaceDelivery/internal/metrics"
	"marketplaceDelivery/repository"
)

// WriteStep is one way of applying a write. Steps of one Write call must be equivalent.
type WriteStep struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError is the failure of one attempt of one step.
type StepError struct {
	Step    string
	Attempt int
	Err     error
}

// WriteError reports every failed attempt of a Write call, in order.
type WriteError struct {
	Op       string
	Attempts []StepError
}

func (e *WriteError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s#%d: %v", a.Step, a.Attempt, a.Err))
	}
	return fmt.Sprintf("%s failed after %d attempts: %s", e.Op, len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes all attempt errors to errors.Is and errors.As.
func (e *WriteError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Err)
	}
	return out
}

// Last returns the error of the final attempt.
func (e *WriteError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// FallbackConfig tunes a FallbackWriter. Zero values fall back to defaults.
type FallbackConfig struct {
	Retries     int           // attempts per step, at least 1
	BaseDelay   time.Duration // backoff before the second attempt
	MaxDelay    time.Duration // backoff cap
	IsTransient func(error) bool
	IsPermanent func(error) bool // stops the whole write without trying later steps
	// Breaker settings; a step's breaker opens after TripAfter consecutive transient failures.
	TripAfter    uint32
	BreakerReset time.Duration
}

// FallbackWriter applies a write through an ordered list of steps. Each step is retried
// with exponential backoff on transient errors only and is guarded by its own circuit
// breaker, so a step that keeps failing is skipped until the breaker half-opens.
type FallbackWriter struct {
	cfg   FallbackConfig
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewFallbackWriter(cfg FallbackConfig) *FallbackWriter {
	if cfg.Retries < 1 {
		cfg.Retries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 50 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	if cfg.IsTransient == nil {
		cfg.IsTransient = db.IsTransient
	}
	if cfg.IsPermanent == nil {
		cfg.IsPermanent = func(err error) bool { return errors.Is(err, repository.ErrNotFound) }
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = 5
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = 30 * time.Second
	}
	return &FallbackWriter{cfg: cfg, sleep: sleepCtx, breakers: map[string]*gobreaker.CircuitBreaker[struct{}]{}}
}

// Write runs steps in order until one succeeds. It returns nil on success and a
// *WriteError holding every attempt otherwise.
func (w *FallbackWriter) Write(ctx context.Context, op string, steps ...WriteStep) error {
	werr := &WriteError{Op: op}
	log := logging.Ctx(ctx)
	for _, step := range steps {
		cb := w.breaker(step.Name)
		for attempt := 1; attempt <= w.cfg.Retries; attempt++ {
			_, err := cb.Execute(func() (struct{}, error) {
				return struct{}{}, step.Run(ctx)
			})
			if err == nil {
				metrics.FallbackAttempts.WithLabelValues(step.Name, "success").Inc()
				if len(werr.Attempts) > 0 {
					log.Info().Str("op", op).Str("step", step.Name).Int("failed_attempts", len(werr.Attempts)).Msg("fallback write recovered")
				}
				return nil
			}
			werr.Attempts = append(werr.Attempts, StepError{Step: step.Name, Attempt: attempt, Err: err})

			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				metrics.FallbackAttempts.WithLabelValues(step.Name, "rejected").Inc()
				log.Warn().Str("op", op).Str("step", step.Name).Msg("fallback step skipped, circuit open")
				break
			}
			metrics.FallbackAttempts.WithLabelValues(step.Name, "failure").Inc()
			log.Warn().Err(err).Str("op", op).Str("step", step.Name).Int("attempt", attempt).Msg("fallback step failed")

			if w.cfg.IsPermanent(err) {
				return werr
			}
			if !w.cfg.IsTransient(err) || attempt == w.cfg.Retries {
				break
			}
			if serr := w.sleep(ctx, w.backoff(attempt)); serr != nil {
				werr.Attempts = append(werr.Attempts, StepError{Step: step.Name, Attempt: attempt + 1, Err: serr})
				return werr
			}
		}
	}
	return werr
}

// backoff returns BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (w *FallbackWriter) backoff(attempt int) time.Duration {
	if attempt > 30 {
		return w.cfg.MaxDelay
	}
	d := time.Duration(float64(w.cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if d <= 0 || d > w.cfg.MaxDelay {
		return w.cfg.MaxDelay
	}
	return d
}

func (w *FallbackWriter) breaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cb, ok := w.breakers[name]; ok {
		return cb
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     w.cfg.BreakerReset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= w.cfg.TripAfter
		},
		// Only store unavailability counts against the breaker; a missing row does not.
		IsSuccessful: func(err error) bool {
			return err == nil || !w.cfg.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	w.breakers[name] = cb
	return cb
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
