package natsbridge

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/c360/saltstreams/errors"
)

// Backoff controls how ConnectWithBackoff retries the initial dial
type Backoff struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
}

// DefaultBackoff suits a process waiting for NATS at startup
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   1.5,
		Jitter:       true,
	}
}

// Validate checks the backoff settings
func (b Backoff) Validate() error {
	switch {
	case b.InitialDelay < 0 || b.MaxDelay < 0:
		return fmt.Errorf("%w: backoff delays cannot be negative", errors.ErrInvalidConfig)
	case b.Multiplier < 0:
		return fmt.Errorf("%w: backoff multiplier cannot be negative", errors.ErrInvalidConfig)
	case b.MaxDelay > 0 && b.MaxDelay < b.InitialDelay:
		return fmt.Errorf("%w: backoff max delay must be >= initial delay", errors.ErrInvalidConfig)
	}
	return nil
}

func (b Backoff) withDefaults() Backoff {
	d := DefaultBackoff()
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 1
	}
	if b.InitialDelay == 0 {
		b.InitialDelay = d.InitialDelay
	}
	if b.MaxDelay == 0 {
		b.MaxDelay = d.MaxDelay
	}
	if b.Multiplier == 0 {
		b.Multiplier = d.Multiplier
	}
	if b.Multiplier > 1000 {
		b.Multiplier = 1000
	}
	return b
}

// next returns the delay after delay, capped at MaxDelay
func (b Backoff) next(delay time.Duration) time.Duration {
	n := float64(delay) * b.Multiplier
	if n > float64(b.MaxDelay) {
		return b.MaxDelay
	}
	return time.Duration(n)
}

func (b Backoff) sleep(delay time.Duration) time.Duration {
	if !b.Jitter || delay < 4 {
		return delay
	}
	return delay + rand.N(delay/4)
}

// ConnectWithBackoff calls Connect until it succeeds, the attempts run
// out, or ctx is done. Only transient failures are retried.
func (c *Client) ConnectWithBackoff(ctx context.Context, b Backoff) error {
	if err := b.Validate(); err != nil {
		return errors.WrapInvalid(err, "Client", "ConnectWithBackoff", "validate backoff")
	}
	b = b.withDefaults()

	var lastErr error
	delay := b.InitialDelay
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		lastErr = c.Connect(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.IsTransient(lastErr) || ctx.Err() != nil || attempt == b.MaxAttempts {
			break
		}

		c.logger.Debug("NATS connect failed, retrying",
			"attempt", attempt, "max_attempts", b.MaxAttempts, "error", lastErr)

		timer := time.NewTimer(b.sleep(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.WrapTransient(ctx.Err(), "Client", "ConnectWithBackoff",
				fmt.Sprintf("cancelled before attempt %d", attempt+1))
		case <-timer.C:
		}
		delay = b.next(delay)
	}

	return errors.Wrap(lastErr, "Client", "ConnectWithBackoff",
		fmt.Sprintf("connect after %d attempts", b.MaxAttempts))
}
