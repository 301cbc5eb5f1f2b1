// Package retry implements the bounded poll-and-sleep loop used to wait
// for asynchronous UI state.
package retry

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrExhausted is returned when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Sleeper pauses execution. Tests substitute a recording fake.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// RealSleeper sleeps on the wall clock.
var RealSleeper Sleeper = SleeperFunc(time.Sleep)

// Observer is notified of every failed attempt with the policy's Kind.
type Observer func(kind string, attempt int, err error)

// Policy describes a fixed-interval retry budget.
type Policy struct {
	Kind     string        // Fixed loop kind for metrics, e.g. "find"; defaults to "other"
	Attempts int           // Total attempts, at least 1
	Interval time.Duration // Pause between attempts
	Sleeper  Sleeper       // Defaults to RealSleeper
	Logger   *slog.Logger  // Defaults to slog.Default()
	Observe  Observer      // Optional, e.g. a metrics counter
}

// Do calls fn until it returns nil or the attempt budget is spent. There is
// no sleep after the final attempt. The returned error wraps ErrExhausted
// and the last error fn returned.
func (p Policy) Do(label string, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = RealSleeper
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var last error
	for i := 1; i <= attempts; i++ {
		last = fn(i)
		if last == nil {
			return nil
		}
		if p.Observe != nil {
			kind := p.Kind
			if kind == "" {
				kind = "other"
			}
			p.Observe(kind, i, last)
		}
		logger.Info("retrying", "what", label, "attempt", i, "of", attempts, "error", last)
		if i < attempts {
			sleeper.Sleep(p.Interval)
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", label, ErrExhausted, attempts, last)
}

// Until polls cond until it reports true. The description of the last
// observed state is used in the final error.
func (p Policy) Until(label string, cond func() (bool, string)) error {
	return p.Do(label, func(int) error {
		ok, state := cond()
		if ok {
			return nil
		}
		return errors.New(state)
	})
}
