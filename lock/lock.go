// Package lock provides a named mutex shared by independent processes through a lease record in common storage.
//
// A lease is valid while now - acquired_at < ttl. The holder renews it in the background when AutoRenew is set,
// so a crashed holder stops renewing and the record becomes reusable after ttl.
// Losing a lease to another holder is not reported proactively; callers that care poll Lost.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"Tgviews/lib/sl"
	"Tgviews/storage"

	"github.com/google/uuid"
)

const (
	DefaultRetryInterval = 500 * time.Millisecond
	DefaultPollInterval  = 50 * time.Millisecond
	DefaultRenewFloor    = 300 * time.Millisecond

	waitLogInterval = 5 * time.Second
)

var (
	// ErrAlreadyLocked is returned on reentrant acquisition of the same Lock instance
	ErrAlreadyLocked = errors.New("lock is already held by this instance")
	// ErrNotAcquired is returned by Do when the lease is taken and Wait is off
	ErrNotAcquired = errors.New("lock was not acquired")
)

type Options struct {
	TTL       time.Duration
	Wait      bool
	AutoRenew bool

	// RetryInterval is the pause between acquisition attempts when Wait is set
	RetryInterval time.Duration
	// PollInterval is how often the renewal loop checks the local guard
	PollInterval time.Duration
	// RenewFloor is the lower bound of the renewal period, which is otherwise ttl - ttl/2
	RenewFloor time.Duration
}

func (o Options) withDefaults() Options {
	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RenewFloor <= 0 {
		o.RenewFloor = DefaultRenewFloor
	}
	return o
}

type Lock struct {
	store  storage.LockStorage
	key    string
	lockID string
	opts   Options
	log    *slog.Logger

	held atomic.Bool
	lost atomic.Bool

	mu        sync.Mutex
	renewDone chan struct{}
}

// New creates a lock instance with its own holder id. Instances are not reentrant.
func New(store storage.LockStorage, key string, opts Options, log *slog.Logger) *Lock {
	lockID := uuid.New().String()
	return &Lock{
		store:  store,
		key:    key,
		lockID: lockID,
		opts:   opts.withDefaults(),
		log: log.With(
			sl.Module("lock"),
			slog.String("key", key),
			slog.String("lock_id", lockID),
		),
	}
}

// Locked reports whether the local guard is held
func (l *Lock) Locked() bool {
	return l.held.Load()
}

// Lost reports whether background renewal failed since the last successful Acquire
func (l *Lock) Lost() bool {
	return l.lost.Load()
}

func (l *Lock) Key() string {
	return l.key
}

// Acquire takes the lease. Without Wait a taken lease yields false; with Wait it retries until success or ctx is done.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	l.log.Debug("acquiring lock")
	if !l.held.CompareAndSwap(false, true) {
		return false, ErrAlreadyLocked
	}
	l.lost.Store(false)

	lastLog := time.Now()
	for {
		ok, err := l.store.AcquireLease(ctx, l.key, l.lockID, l.opts.TTL, time.Now().UTC())
		if err != nil {
			l.held.Store(false)
			return false, fmt.Errorf("acquiring lock %s: %w", l.key, err)
		}
		if ok {
			break
		}
		if !l.opts.Wait || !l.held.Load() {
			l.held.Store(false)
			l.log.Debug("lock was not acquired")
			return false, nil
		}

		if time.Since(lastLog) > waitLogInterval {
			l.log.Debug("lock was not acquired, waiting")
			lastLog = time.Now()
		}

		select {
		case <-ctx.Done():
			l.held.Store(false)
			return false, ctx.Err()
		case <-time.After(l.opts.RetryInterval):
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// a Release that ran while the store call was in flight leaves the guard free,
	// the record written after it has no owner and is dropped
	if !l.held.Load() {
		if _, err := l.store.ReleaseLease(context.WithoutCancel(ctx), l.key, l.lockID); err != nil {
			l.log.Error("dropping lease released during acquisition", sl.Err(err))
		}
		l.log.Debug("lock was released during acquisition")
		return false, nil
	}

	l.log.Debug("lock was acquired")
	if l.opts.AutoRenew {
		done := make(chan struct{})
		l.renewDone = done
		go l.renewLoop(context.WithoutCancel(ctx), done)
	}
	return true, nil
}

// Reacquire refreshes the lease timestamp if this instance still owns the record
func (l *Lock) Reacquire(ctx context.Context) (bool, error) {
	if !l.held.Load() {
		l.log.Debug("cannot reacquire lock that is not held")
		return false, nil
	}
	ok, err := l.store.RenewLease(ctx, l.key, l.lockID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reacquiring lock %s: %w", l.key, err)
	}
	if ok {
		l.log.Debug("lock was reacquired")
	} else {
		l.log.Debug("lock was not reacquired")
	}
	return ok, nil
}

// Release drops the lease record and waits for the renewal loop to finish. Releasing an unheld lock is a no-op.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log.Debug("releasing lock")
	if !l.held.Load() {
		return nil
	}

	deleted, err := l.store.ReleaseLease(ctx, l.key, l.lockID)
	l.held.Store(false)
	if l.renewDone != nil {
		<-l.renewDone
		l.renewDone = nil
	}
	if err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.key, err)
	}
	if !deleted {
		l.log.Debug("lease record was already gone")
	}
	l.log.Debug("lock was released")
	return nil
}

// Do runs fn while holding the lock
func (l *Lock) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer func() {
		if releaseErr := l.Release(context.WithoutCancel(ctx)); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn(ctx)
}

func (l *Lock) renewPeriod() time.Duration {
	return max(l.opts.RenewFloor, l.opts.TTL-l.opts.TTL/2)
}

func (l *Lock) renewLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	period := l.renewPeriod()
	l.log.Debug("renewal started", slog.Duration("period", period))

	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	lastTry := time.Now()
	for l.held.Load() {
		<-ticker.C
		if !l.held.Load() || time.Since(lastTry) <= period {
			continue
		}
		lastTry = time.Now()

		ok, err := l.Reacquire(ctx)
		if err != nil {
			l.log.Error("renewing lease", sl.Err(err))
		}
		if !ok {
			if l.held.Load() {
				l.lost.Store(true)
			}
			break
		}
	}
	l.log.Debug("renewal stopped")
}
