package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndGet(t *testing.T) {
	s := New(time.Minute, 10)

	s.Record("1", DirSend, "NICK foo")
	s.Record("1", DirRecv, ":srv 001 foo :Welcome")
	s.Record("2", DirSend, "NICK bar")

	entries := s.Get("1")
	require.Len(t, entries, 2)
	assert.Equal(t, DirSend, entries[0].Dir)
	assert.Equal(t, "NICK foo", entries[0].Line)
	assert.Len(t, s.Get("2"), 1)
	assert.Empty(t, s.Get("missing"))
}

func TestPerClientCap(t *testing.T) {
	s := New(time.Minute, 5)

	for i := 0; i < 20; i++ {
		s.Record("1", DirRecv, fmt.Sprintf("line-%d", i))
	}

	entries := s.Get("1")
	require.Len(t, entries, 5)
	assert.Equal(t, "line-19", entries[4].Line, "newest entries must win")
	assert.Equal(t, "line-15", entries[0].Line)
}

func TestDumpWritesArtifact(t *testing.T) {
	s := New(time.Minute, 10)
	s.Record("1", DirSend, "JOIN #chan")

	path, err := s.Dump(t.TempDir())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var all map[string][]Entry
	require.NoError(t, json.Unmarshal(raw, &all))
	require.Contains(t, all, "1")
	assert.Equal(t, "JOIN #chan", all["1"][0].Line)
}

func TestClear(t *testing.T) {
	s := New(time.Minute, 10)
	s.Record("1", DirSend, "x")
	s.Clear("1")
	assert.Empty(t, s.Get("1"))
}
