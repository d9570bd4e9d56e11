package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wait = time.Second

func TestAfterFires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	fired := make(chan struct{})

	s.After("reconnect", 100*time.Millisecond, func() { close(fired) })
	assert.True(t, s.Active("reconnect"))

	clock.Advance(99 * time.Millisecond)
	select {
	case <-fired:
		t.Fatal("fired early")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Millisecond)
	select {
	case <-fired:
	case <-time.After(wait):
		t.Fatal("timer did not fire")
	}
	assert.Eventually(t, func() bool { return !s.Active("reconnect") }, wait, time.Millisecond)
}

func TestAfterReplacesSameName(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var first, second atomic.Int32

	s.After("timeout", 10*time.Millisecond, func() { first.Add(1) })
	s.After("timeout", 20*time.Millisecond, func() { second.Add(1) })
	assert.Equal(t, 1, s.armed())

	clock.Advance(30 * time.Millisecond)
	require.Eventually(t, func() bool { return second.Load() == 1 }, wait, time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var calls atomic.Int32

	s.After("reconnect", 10*time.Millisecond, func() { calls.Add(1) })
	s.After("timeout", 10*time.Millisecond, func() { calls.Add(1) })
	s.After("other", 10*time.Millisecond, func() { calls.Add(1) })

	s.Cancel("reconnect", "timeout", "missing")
	assert.False(t, s.Active("reconnect"))
	assert.False(t, s.Active("timeout"))
	assert.True(t, s.Active("other"))

	s.Cancel()
	assert.Equal(t, 0, s.armed())

	clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRealClock(t *testing.T) {
	s := New(nil)
	fired := make(chan struct{})

	s.After("reconnect", 5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(wait):
		t.Fatal("timer did not fire")
	}
}
