// This file defines how cache entries expire over time.

package expiration

import (
	"errors"
	"time"

	"github.com/krisalay/session-cache/types"
)

// ErrStopped is returned by a Scheduler that no longer accepts work.
var ErrStopped = errors.New("expiration: scheduler stopped")

/*
Scheduler is the capability the store uses to expire entries on its own.

The store never hands a timer object to an entry. It asks the scheduler to
run an action after a delay, and that action closes over the entry's identity
(key + version) only. Whatever timer mechanism sits behind the scheduler,
a stale action can at worst fire into a no-op.

Implementations must not block in AfterFunc.
*/
type Scheduler interface {

	// Now is the clock used to stamp CreatedAt / ExpireAt.
	Now() time.Time

	// AfterFunc runs f once, on its own goroutine, after d has elapsed.
	AfterFunc(d time.Duration, f func()) error
}

// IsExpired checks whether the entry's deadline has passed at now.
// Entries without a TTL never expire.
func IsExpired[V any](ent *types.Entry[V], now time.Time) bool {
	return ent.HasTTL() && !now.Before(ent.ExpireAt)
}

// TimerScheduler is the production Scheduler: wall clock + runtime timers.
type TimerScheduler struct{}

func (TimerScheduler) Now() time.Time { return time.Now() }

func (TimerScheduler) AfterFunc(d time.Duration, f func()) error {
	time.AfterFunc(d, f)
	return nil
}
