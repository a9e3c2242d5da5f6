package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maypok86/otter/v2"
)

const (
	DirSend = "send"
	DirRecv = "recv"
)

// Entry is one raw line exchanged with the server under test.
type Entry struct {
	Time time.Time `json:"time"`
	Dir  string    `json:"dir"`
	Line string    `json:"line"`
}

// Store keeps a bounded per-client transcript of exchanged lines so a failed
// run can be reconstructed after the fact. Entries for idle clients expire,
// keeping long suite runs from growing without bound.
type Store struct {
	cache        *otter.Cache[string, []Entry]
	maxPerClient int
}

func New(ttl time.Duration, maxPerClient int) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxPerClient <= 0 {
		maxPerClient = 2048
	}

	s := &Store{maxPerClient: maxPerClient}
	s.cache = otter.Must(&otter.Options[string, []Entry]{
		ExpiryCalculator: otter.ExpiryAccessing[string, []Entry](ttl),
	})
	return s
}

// Record appends one line to the client's transcript, evicting the oldest
// entries past the per-client cap.
func (s *Store) Record(client, dir, line string) {
	entries, _ := s.cache.GetIfPresent(client)
	entries = append(entries, Entry{Time: time.Now(), Dir: dir, Line: line})
	if len(entries) > s.maxPerClient {
		entries = entries[len(entries)-s.maxPerClient:]
	}
	s.cache.Set(client, entries)
}

func (s *Store) Get(client string) []Entry {
	entries, _ := s.cache.GetIfPresent(client)
	return entries
}

func (s *Store) Clear(client string) {
	s.cache.Invalidate(client)
}

func (s *Store) ClearAll() {
	s.cache.InvalidateAll()
}

// Dump writes every live transcript to one timestamped JSON artifact and
// returns its path.
func (s *Store) Dump(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}

	all := make(map[string][]Entry)
	for k, v := range s.cache.All() {
		all[k] = v
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcripts: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("transcript-%d.json", time.Now().UnixNano()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write transcript artifact: %w", err)
	}
	return path, nil
}
