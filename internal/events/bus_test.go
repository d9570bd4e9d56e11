package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitDeliversInOrder(t *testing.T) {
	b := New()

	var (
		mu  sync.Mutex
		got []int
	)
	require.NoError(t, b.Subscribe("tick", func(n int) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	}))

	for i := 0; i < 100; i++ {
		b.Emit("tick", i)
	}
	b.Close()

	require.Len(t, got, 100)
	for i, n := range got {
		assert.Equal(t, i, n)
	}
}

func TestHandlerMayEmit(t *testing.T) {
	b := New()
	defer b.Close()

	done := make(chan string, 1)
	require.NoError(t, b.Subscribe("first", func(err error, n int) {
		b.Emit("second", err.Error())
	}))
	require.NoError(t, b.Subscribe("second", func(msg string) {
		done <- msg
	}))

	b.Emit("first", errors.New("boom"), 1)

	select {
	case msg := <-done:
		assert.Equal(t, "boom", msg)
	case <-time.After(time.Second):
		t.Fatal("nested event was not delivered")
	}
}

func TestSubscribeOnceAndUnsubscribe(t *testing.T) {
	b := New()

	var once, always int
	handler := func() { always++ }
	require.NoError(t, b.SubscribeOnce("ping", func() { once++ }))
	require.NoError(t, b.Subscribe("ping", handler))
	assert.True(t, b.hasSubscribers("ping"))

	b.Emit("ping")
	b.Emit("ping")
	b.Close()

	assert.Equal(t, 1, once)
	assert.Equal(t, 2, always)
	require.NoError(t, b.Unsubscribe("ping", handler))
	assert.False(t, b.hasSubscribers("ping"))
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	b := New()
	called := false
	require.NoError(t, b.Subscribe("late", func() { called = true }))

	b.Close()
	b.Close()
	b.Emit("late")

	assert.False(t, called)
}
