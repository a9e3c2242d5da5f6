package portalloc

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseUniqueUnderConcurrency(t *testing.T) {
	dir := t.TempDir()

	const workers = 16
	type pair struct {
		host string
		port int
	}

	var mu sync.Mutex
	seen := make(map[pair]int)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Separate Registry per goroutine to exercise the file lock,
			// not just the in-process mutex.
			reg := New(dir)
			host, port, err := reg.Lease()
			if err != nil {
				t.Error(err)
				return
			}

			mu.Lock()
			seen[pair{host, port}]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers, "two holders got the same (host, port)")
	for p, n := range seen {
		assert.Equal(t, 1, n, fmt.Sprintf("%v leased %d times", p, n))
	}
}

func TestReleaseMakesPairReusable(t *testing.T) {
	dir := t.TempDir()
	reg := New(dir)

	host, port, err := reg.Lease()
	require.NoError(t, err)
	require.NoError(t, reg.Release(host, port))

	// The shared state no longer contains the pair.
	other := New(dir)
	used, err := other.readState()
	require.NoError(t, err)
	assert.NotContains(t, used, lease{Host: host, Port: port})
}

func TestReleaseAll(t *testing.T) {
	dir := t.TempDir()
	reg := New(dir)

	for i := 0; i < 3; i++ {
		_, _, err := reg.Lease()
		require.NoError(t, err)
	}
	require.NoError(t, reg.ReleaseAll())

	used, err := reg.readState()
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Empty(t, reg.own)
}

func TestCorruptStateFileIsReset(t *testing.T) {
	dir := t.TempDir()
	reg := New(dir)

	_, _, err := reg.Lease()
	require.NoError(t, err)

	// A torn write must not wedge every later lease.
	require.NoError(t, os.WriteFile(reg.statePath, []byte("{not json"), 0o644))

	_, _, err = reg.Lease()
	assert.NoError(t, err)
}
