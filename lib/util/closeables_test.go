package util

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetClosers isolates the package-level registry for one test.
func resetClosers(t *testing.T) {
	t.Helper()
	closersMu.Lock()
	saved := closers
	closers = nil
	closersMu.Unlock()
	t.Cleanup(func() {
		closersMu.Lock()
		closers = saved
		closersMu.Unlock()
	})
}

type orderedCloser struct {
	name    string
	order   *[]string
	failure error
}

func (c *orderedCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.failure
}

func registryLen() int {
	closersMu.Lock()
	defer closersMu.Unlock()
	return len(closers)
}

func TestCloseAllRunsInReverseRegistrationOrder(t *testing.T) {
	resetClosers(t)

	var order []string
	RegisterCloser(&orderedCloser{name: "listener", order: &order})
	RegisterCloser(&orderedCloser{name: "agent", order: &order})
	RegisterCloser(&orderedCloser{name: "console", order: &order})

	CloseAll()

	assert.Equal(t, []string{"console", "agent", "listener"}, order,
		"dependents close before what they depend on")
}

func TestCloseAllContinuesPastErrors(t *testing.T) {
	resetClosers(t)

	var order []string
	RegisterCloser(&orderedCloser{name: "first", order: &order})
	RegisterCloser(&orderedCloser{name: "broken", order: &order, failure: errors.New("close failed")})
	RegisterCloser(&orderedCloser{name: "last", order: &order})

	CloseAll()

	assert.Len(t, order, 3, "one failing closer must not strand the rest")
}

func TestCloseAllClearsRegistry(t *testing.T) {
	resetClosers(t)

	var order []string
	RegisterCloser(&orderedCloser{name: "once", order: &order})

	CloseAll()
	CloseAll()

	assert.Equal(t, []string{"once"}, order, "a drained closer does not run again")
	assert.Zero(t, registryLen())
}

func TestCloseAllEmptyRegistry(t *testing.T) {
	resetClosers(t)
	assert.NotPanics(t, CloseAll)
}

func TestRegisterCloserConcurrent(t *testing.T) {
	resetClosers(t)

	var order []string
	var orderMu sync.Mutex
	safeAppend := func(name string) {
		orderMu.Lock()
		defer orderMu.Unlock()
		order = append(order, name)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RegisterCloser(closerFunc(func() error {
				safeAppend("x")
				return nil
			}))
		}()
	}
	wg.Wait()

	require.Equal(t, 50, registryLen())
	CloseAll()
	assert.Len(t, order, 50)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseAllClosesRealFile(t *testing.T) {
	resetClosers(t)

	f, err := os.CreateTemp(t.TempDir(), "closeable-*.txt")
	require.NoError(t, err)

	RegisterCloser(f)
	CloseAll()

	_, err = f.WriteString("after close")
	assert.Error(t, err, "file should be closed")
}
