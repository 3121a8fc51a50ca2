package signals

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetPreShutdown clears the pre-shutdown handler list and resets the
// graceful timeout for the duration of a test.
func resetPreShutdown(t *testing.T) {
	t.Helper()
	preShutdownMu.Lock()
	savedHandlers := preShutdownHandlers
	savedTimeout := gracefulTimeout
	preShutdownHandlers = nil
	gracefulTimeout = defaultGracefulTimeout
	preShutdownMu.Unlock()
	t.Cleanup(func() {
		preShutdownMu.Lock()
		preShutdownHandlers = savedHandlers
		gracefulTimeout = savedTimeout
		preShutdownMu.Unlock()
	})
}

func TestPreShutdownRunsHandlersInOrder(t *testing.T) {
	resetPreShutdown(t)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		RegisterPreShutdownHandler(func() { order = append(order, i) })
	}

	assert.True(t, handlePreShutdown())
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestPreShutdownNilHandlerIgnored(t *testing.T) {
	resetPreShutdown(t)

	id := RegisterPreShutdownHandler(nil)
	assert.Equal(t, HandlerID(-1), id)

	preShutdownMu.RLock()
	defer preShutdownMu.RUnlock()
	assert.Empty(t, preShutdownHandlers)
}

func TestPreShutdownEmptyListSucceeds(t *testing.T) {
	resetPreShutdown(t)
	assert.True(t, handlePreShutdown())
}

func TestPreShutdownTimesOutOnSlowHandler(t *testing.T) {
	resetPreShutdown(t)
	SetGracefulTimeout(100 * time.Millisecond)

	RegisterPreShutdownHandler(func() { time.Sleep(time.Second) })

	start := time.Now()
	ok := handlePreShutdown()

	assert.False(t, ok, "a handler exceeding its budget must fail the pre-shutdown phase")
	assert.Less(t, time.Since(start), time.Second, "dispatch must give up before the handler finishes")
}

func TestPreShutdownHungHandlerDoesNotStarveOthers(t *testing.T) {
	resetPreShutdown(t)
	// 200ms split across two handlers: 100ms each.
	SetGracefulTimeout(200 * time.Millisecond)

	var secondRan atomic.Bool
	RegisterPreShutdownHandler(func() { time.Sleep(time.Second) })
	RegisterPreShutdownHandler(func() { secondRan.Store(true) })

	ok := handlePreShutdown()

	assert.False(t, ok)
	assert.True(t, secondRan.Load(), "the handler behind the hung one must still run")
}

func TestDeregisterPreShutdownHandler(t *testing.T) {
	resetPreShutdown(t)

	ran := false
	id := RegisterPreShutdownHandler(func() { ran = true })
	DeregisterPreShutdownHandler(id)

	assert.True(t, handlePreShutdown())
	assert.False(t, ran, "deregistered handler must not run")
}

func TestPreShutdownPanicIsRecovered(t *testing.T) {
	resetPreShutdown(t)

	ranAfterPanic := false
	RegisterPreShutdownHandler(func() { panic("boom") })
	RegisterPreShutdownHandler(func() { ranAfterPanic = true })

	var ok bool
	stderr := captureStderr(t, func() { ok = handlePreShutdown() })

	assert.True(t, ok, "a recovered panic still counts as a completed handler")
	assert.True(t, ranAfterPanic)
	assert.Contains(t, stderr, "panic")
}

func TestSetGracefulTimeout(t *testing.T) {
	resetPreShutdown(t)

	cases := []struct {
		name string
		set  time.Duration
		want time.Duration
	}{
		{"positive", 10 * time.Second, 10 * time.Second},
		{"zero falls back to default", 0, defaultGracefulTimeout},
		{"negative falls back to default", -5 * time.Second, defaultGracefulTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			SetGracefulTimeout(tc.set)

			preShutdownMu.RLock()
			got := gracefulTimeout
			preShutdownMu.RUnlock()
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPreShutdownConcurrentRegistration(t *testing.T) {
	resetPreShutdown(t)

	const n = 50
	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RegisterPreShutdownHandler(func() { ran.Add(1) })
		}()
	}
	wg.Wait()

	require.True(t, handlePreShutdown())
	assert.Equal(t, int64(n), ran.Load())
}

// TestPreShutdownRunsBeforeInterrupt simulates the dispatch sequence the
// platform Handle loops use for SIGINT/SIGTERM.
func TestPreShutdownRunsBeforeInterrupt(t *testing.T) {
	resetPreShutdown(t)
	resetHandlers(t)

	var order []string
	RegisterPreShutdownHandler(func() { order = append(order, "pre-shutdown") })
	RegisterInterruptHandler(func() { order = append(order, "interrupt") })

	handlePreShutdown()
	handleInterrupted()

	assert.Equal(t, []string{"pre-shutdown", "interrupt"}, order)
}
