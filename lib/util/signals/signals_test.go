package signals

import (
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetHandlers clears the registered handler lists for the duration of a
// test and restores them afterwards.
func resetHandlers(t *testing.T) {
	t.Helper()
	mu.Lock()
	savedReloaders, savedInterrupters := reloaders, interrupters
	reloaders, interrupters = nil, nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		reloaders, interrupters = savedReloaders, savedInterrupters
		mu.Unlock()
	})
}

// captureStderr runs fn with os.Stderr redirected to a pipe and returns what
// was written.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	fn()
	w.Close()
	os.Stderr = old
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

// handlerKinds lets the registration and dispatch tests run once per signal
// kind without duplicating each test body.
var handlerKinds = []struct {
	name       string
	register   func(Handler) HandlerID
	deregister func(HandlerID)
	dispatch   func()
}{
	{"reload", RegisterReloadHandler, DeregisterReloadHandler, handleReload},
	{"interrupt", RegisterInterruptHandler, DeregisterInterruptHandler, handleInterrupted},
}

func TestDispatchRunsHandlersInOrder(t *testing.T) {
	for _, kind := range handlerKinds {
		t.Run(kind.name, func(t *testing.T) {
			resetHandlers(t)

			var order []int
			for i := 0; i < 3; i++ {
				i := i
				kind.register(func() { order = append(order, i) })
			}

			kind.dispatch()
			assert.Equal(t, []int{0, 1, 2}, order)
		})
	}
}

func TestDispatchWithNoHandlers(t *testing.T) {
	resetHandlers(t)

	// Must not panic on empty lists.
	handleReload()
	handleInterrupted()
}

func TestNilHandlersIgnored(t *testing.T) {
	for _, kind := range handlerKinds {
		t.Run(kind.name, func(t *testing.T) {
			resetHandlers(t)

			id := kind.register(nil)
			assert.Equal(t, HandlerID(-1), id)

			mu.RLock()
			assert.Empty(t, reloaders)
			assert.Empty(t, interrupters)
			mu.RUnlock()
		})
	}
}

func TestHandlerIDsAreUnique(t *testing.T) {
	resetHandlers(t)

	ids := map[HandlerID]bool{}
	ids[RegisterReloadHandler(func() {})] = true
	ids[RegisterInterruptHandler(func() {})] = true
	ids[RegisterReloadHandler(func() {})] = true
	assert.Len(t, ids, 3)
}

func TestDeregisterRemovesOnlyThatHandler(t *testing.T) {
	for _, kind := range handlerKinds {
		t.Run(kind.name, func(t *testing.T) {
			resetHandlers(t)

			removedRan, keptRan := false, false
			id := kind.register(func() { removedRan = true })
			kind.register(func() { keptRan = true })

			kind.deregister(id)
			kind.dispatch()

			assert.False(t, removedRan, "deregistered handler must not run")
			assert.True(t, keptRan, "remaining handler must still run")
		})
	}
}

func TestDeregisterUnknownIDIsNoOp(t *testing.T) {
	resetHandlers(t)

	ran := false
	RegisterReloadHandler(func() { ran = true })
	DeregisterReloadHandler(HandlerID(999))

	handleReload()
	assert.True(t, ran)
}

func TestPanickingHandlerDoesNotStopDispatch(t *testing.T) {
	for _, kind := range handlerKinds {
		t.Run(kind.name, func(t *testing.T) {
			resetHandlers(t)

			ranAfterPanic := false
			kind.register(func() { panic("boom") })
			kind.register(func() { ranAfterPanic = true })

			stderr := captureStderr(t, kind.dispatch)

			assert.True(t, ranAfterPanic, "handler after the panicking one must still run")
			assert.Contains(t, stderr, "panic")
		})
	}
}

func TestConcurrentRegistration(t *testing.T) {
	resetHandlers(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			RegisterReloadHandler(func() {})
		}()
		go func() {
			defer wg.Done()
			RegisterInterruptHandler(func() {})
		}()
	}
	wg.Wait()

	mu.RLock()
	defer mu.RUnlock()
	assert.Len(t, reloaders, n)
	assert.Len(t, interrupters, n)
}

func TestSignalChannelBuffered(t *testing.T) {
	// signal.Notify drops signals it cannot deliver; the buffer keeps one
	// pending while no receiver is ready.
	require.NotNil(t, sigChan)
	assert.Equal(t, 1, cap(sigChan))
}
