// Package readiness implements the bounded poll loop used to wait for
// asynchronous side effects of system mutations: a file appearing, a
// control socket accepting connections, an interface obtaining an address.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when the condition did not hold within the
// attempt budget.
var ErrExhausted = errors.New("readiness: attempts exhausted")

// Budget bounds a poll loop: a fixed sleep interval and a maximum number
// of predicate evaluations.
type Budget struct {
	// Interval is the fixed sleep between attempts.
	Interval time.Duration `yaml:"interval"`

	// MaxAttempts is the number of predicate evaluations before giving up.
	MaxAttempts int `yaml:"max_attempts"`
}

// ApplyDefaults sets zero-valued fields from d.
func (b *Budget) ApplyDefaults(d Budget) {
	if b.Interval == 0 {
		b.Interval = d.Interval
	}
	if b.MaxAttempts == 0 {
		b.MaxAttempts = d.MaxAttempts
	}
}

// Validate checks that the budget is usable.
func (b *Budget) Validate() error {
	if b.Interval <= 0 {
		return errors.New("readiness: budget: Interval must be positive")
	}
	if b.MaxAttempts <= 0 {
		return errors.New("readiness: budget: MaxAttempts must be positive")
	}
	return nil
}

// Wait evaluates check up to b.MaxAttempts times, sleeping b.Interval
// between attempts. It returns nil as soon as check reports true,
// ErrExhausted after the final failed attempt, or the context error if the
// context is done. No further attempts are issued once interrupted.
func Wait(ctx context.Context, b Budget, check func(ctx context.Context) bool) error {
	if err := b.Validate(); err != nil {
		return err
	}

	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("readiness: %w", err)
		}
		if check(ctx) {
			return nil
		}
		if attempt == b.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("readiness: %w", ctx.Err())
		case <-time.After(b.Interval):
		}
	}
	return ErrExhausted
}
