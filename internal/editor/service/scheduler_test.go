package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLoop(t *testing.T) *Loop {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(8)
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := runLoop(t)

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not drain")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopAfterFunc(t *testing.T) {
	l := runLoop(t)

	var calls atomic.Int32
	l.AfterFunc(20*time.Millisecond, func() { calls.Add(1) })

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLoopTimerStop(t *testing.T) {
	l := runLoop(t)

	var calls atomic.Int32
	timer := l.AfterFunc(30*time.Millisecond, func() { calls.Add(1) })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

// A timer stopped after it fired but before the loop ran its callback must
// not run.
func TestLoopTimerStoppedWhileQueued(t *testing.T) {
	l := runLoop(t)

	release := make(chan struct{})
	l.Post(func() { <-release })

	var calls atomic.Int32
	timer := l.AfterFunc(time.Millisecond, func() { calls.Add(1) })
	time.Sleep(30 * time.Millisecond) // fired and queued behind the blocked task

	assert.True(t, timer.Stop())
	close(release)

	done := make(chan struct{})
	l.Post(func() { close(done) })
	<-done
	assert.Equal(t, int32(0), calls.Load())
}

func TestLoopPostAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(1)
	go l.Run(ctx)
	cancel()
	<-l.Done()

	assert.False(t, l.Post(func() {}))
}

func TestSessionOnLoopDebounces(t *testing.T) {
	l := runLoop(t)
	h := newHarness(t)
	s := NewSession(h.surface, h.files, h.store, l, WithQuietPeriod(40*time.Millisecond))

	for _, text := range []string{"a", "ab", "abc"} {
		text := text
		l.Post(func() { _ = s.Handle(TextChanged{Text: text}) })
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		sets := make(chan int)
		l.Post(func() { sets <- h.store.sets })
		return <-sets == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(80 * time.Millisecond)
	sets := make(chan int)
	l.Post(func() { sets <- h.store.sets })
	assert.Equal(t, 1, <-sets)

	rec, ok := h.record(t)
	require.True(t, ok)
	assert.Equal(t, "abc", rec.Content)
}
