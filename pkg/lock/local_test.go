package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	var (
		inside     atomic.Int32
		violations atomic.Int32
		wg         sync.WaitGroup
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "d1|2024-01-15")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			if inside.Add(1) > 1 {
				violations.Add(1)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Zero(t, violations.Load())
	assert.Zero(t, l.size())
}

func TestLocal_DistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "d1|2024-01-15")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	other, err := l.Lock(ctx, "d1|2024-01-16")
	require.NoError(t, err)
	other()
}

func TestLocal_TimeoutReleasesPartialAcquisition(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// "a" was taken first and must have been released again.
	quick, cancelQuick := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelQuick()
	unlockA, err := l.Lock(quick, "a")
	require.NoError(t, err)
	unlockA()

	unlock()
	assert.Zero(t, l.size())
}

func TestLocal_OppositeOrderNoDeadlock(t *testing.T) {
	l := NewLocal()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		keys := []string{"x", "y"}
		if i%2 == 1 {
			keys = []string{"y", "x"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			unlock, err := l.Lock(ctx, keys...)
			if assert.NoError(t, err) {
				unlock()
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, l.size())
}

func TestLocal_DuplicateKeysAndIdempotentUnlock(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k", "k")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.Zero(t, l.size())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "d1|2024-01-15", Key("d1", stringer("2024-01-15")))
}

type stringer string

func (s stringer) String() string { return string(s) }
