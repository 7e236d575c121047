// Package lockout tracks failed login attempts per username and locks an
// account for a fixed window once the threshold is reached.
//
// State lives in a key-value Store under "ATTEMPTS_<username>" and
// "LOCK_<username>". Expired locks are cleared lazily by CheckLock.
package lockout

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	attemptsKeyPrefix = "ATTEMPTS_"
	lockKeyPrefix     = "LOCK_"

	DefaultMaxAttempts = 5
	DefaultWindow      = 30 * time.Minute
)

// Store is the persistence the tracker needs. Incr must be atomic so two
// concurrent failures for the same user are both counted.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Status is the result of CheckLock.
type Status struct {
	Locked           bool
	MinutesRemaining int
}

type Tracker struct {
	store       Store
	maxAttempts int64
	window      time.Duration
	now         func() time.Time
}

func NewTracker(store Store, cfg Config) *Tracker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Tracker{
		store:       store,
		maxAttempts: int64(cfg.MaxAttempts),
		window:      cfg.Window,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) CheckLock(ctx context.Context, username string) (Status, error) {
	raw, ok, err := t.store.Get(ctx, lockKeyPrefix+username)
	if err != nil {
		return Status{}, fmt.Errorf("reading lock: %w", err)
	}
	if !ok {
		return Status{}, nil
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// unreadable marker is treated as expired
		return Status{}, t.ResetAttempts(ctx, username)
	}

	remaining := t.window - t.now().Sub(time.UnixMilli(ms))
	if remaining <= 0 {
		if err := t.ResetAttempts(ctx, username); err != nil {
			return Status{}, err
		}
		return Status{}, nil
	}

	return Status{
		Locked:           true,
		MinutesRemaining: int(math.Ceil(remaining.Minutes())),
	}, nil
}

// IncrementAttempts records one failure and reports the new count and
// whether this failure set the lock.
func (t *Tracker) IncrementAttempts(ctx context.Context, username string) (int64, bool, error) {
	n, err := t.store.Incr(ctx, attemptsKeyPrefix+username)
	if err != nil {
		return 0, false, fmt.Errorf("incrementing attempts: %w", err)
	}
	if n < t.maxAttempts {
		return n, false, nil
	}

	stamp := strconv.FormatInt(t.now().UnixMilli(), 10)
	if err := t.store.Set(ctx, lockKeyPrefix+username, stamp); err != nil {
		return n, false, fmt.Errorf("setting lock: %w", err)
	}
	return n, true, nil
}

// ResetAttempts clears the counter and the lock marker. Idempotent.
func (t *Tracker) ResetAttempts(ctx context.Context, username string) error {
	if err := t.store.Delete(ctx, attemptsKeyPrefix+username, lockKeyPrefix+username); err != nil {
		return fmt.Errorf("resetting attempts: %w", err)
	}
	return nil
}

// Attempts returns the current failure count.
func (t *Tracker) Attempts(ctx context.Context, username string) (int64, error) {
	raw, ok, err := t.store.Get(ctx, attemptsKeyPrefix+username)
	if err != nil {
		return 0, fmt.Errorf("reading attempts: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reading attempts: %w", err)
	}
	return n, nil
}
