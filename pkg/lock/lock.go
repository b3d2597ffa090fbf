// Package lock serialises work on named keys. Appointment writes hold the key
// of every (doctor, date) they touch for the duration of the check-then-write.
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

type Locker interface {
	// Lock blocks until every key is held or ctx is done. Keys are acquired in
	// sorted order so overlapping callers cannot deadlock. The returned unlock
	// releases all of them and is safe to call more than once.
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// Key builds the critical-section key for a doctor's day.
func Key(doctorID string, date fmt.Stringer) string {
	return doctorID + "|" + date.String()
}

// normalize returns the distinct keys in acquisition order.
func normalize(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

func timeoutError(key string, cause error) error {
	return fmt.Errorf("%w %q: %w", ErrLockTimeout, key, cause)
}
