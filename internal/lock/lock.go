// Package lock provides the mutual-exclusion lease guarding operations that
// mutate a shared overlay keyed by (user, repo, branch). Two concurrent
// local-diff syncs against one overlay would corrupt it; nothing else in the
// pipeline needs locking, since each level writes disjoint entity IDs.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Leaser is the storage contract the lock runs on.
type Leaser interface {
	TryAcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, key, owner string) error
}

// Options configures acquisition behavior.
type Options struct {
	TTL        time.Duration
	MaxRetries int
	// Backoff is the initial retry delay; it doubles per attempt.
	Backoff time.Duration
}

// DefaultOptions returns short-TTL, bounded-retry defaults.
func DefaultOptions() Options {
	return Options{
		TTL:        30 * time.Second,
		MaxRetries: 5,
		Backoff:    200 * time.Millisecond,
	}
}

// Lock is a held overlay lease.
type Lock struct {
	leaser Leaser
	key    string
	owner  string
}

// OverlayKey builds the lease key for a (user, repo, branch) overlay.
func OverlayKey(user, repo, branch string) string {
	return fmt.Sprintf("overlay:%s:%s:%s", user, repo, branch)
}

// Acquire takes the lease for key, retrying with exponential backoff up to
// MaxRetries times. It fails rather than waiting forever: a stuck holder's
// lease expires on its own after TTL.
func Acquire(ctx context.Context, leaser Leaser, key string, opts Options) (*Lock, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultOptions().MaxRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultOptions().Backoff
	}

	owner := uuid.New().String()
	backoff := opts.Backoff
	for attempt := 0; ; attempt++ {
		ok, err := leaser.TryAcquireLease(ctx, key, owner, opts.TTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{leaser: leaser, key: key, owner: owner}, nil
		}
		if attempt >= opts.MaxRetries {
			return nil, fmt.Errorf("lock %s: held by another owner after %d attempts", key, attempt+1)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// Release frees the lease. Safe to call once per acquired lock.
func (l *Lock) Release(ctx context.Context) error {
	return l.leaser.ReleaseLease(ctx, l.key, l.owner)
}

// With runs fn while holding the lease for key. The lease is released on
// every path out of fn, including failure, so an aborted run never leaves
// the overlay locked until TTL expiry. fn's error wins over a release error.
func With(ctx context.Context, leaser Leaser, key string, opts Options, fn func(context.Context) error) (err error) {
	held, aerr := Acquire(ctx, leaser, key, opts)
	if aerr != nil {
		return aerr
	}
	defer func() {
		if rerr := held.Release(ctx); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(ctx)
}
