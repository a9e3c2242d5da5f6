package portalloc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// Registry hands out (host, port) pairs that are unique across every harness
// process on the machine. The set of held pairs lives in a small JSON file
// guarded by a sibling advisory lock, so parallel test runners never collide.
type Registry struct {
	statePath string
	lockPath  string

	mu  sync.Mutex
	own map[lease]bool
}

type lease struct {
	Host string
	Port int
}

type persistedLease struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// New returns a registry backed by dir (os.TempDir() when empty).
func New(dir string) *Registry {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Registry{
		statePath: filepath.Join(dir, "ircheck_ports.json"),
		lockPath:  filepath.Join(dir, "ircheck_ports.json.lock"),
		own:       make(map[lease]bool),
	}
}

// Lease binds an ephemeral local port, records the resulting pair in the
// shared set and returns it. The pair stays reserved until Release.
func (r *Registry) Lease() (string, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var host string
	var port int

	err := r.withState(func(used map[lease]bool) error {
		for {
			h, p, err := bindEphemeral()
			if err != nil {
				return err
			}
			if used[lease{Host: h, Port: p}] {
				// Another process grabbed the same pair, ask the OS again.
				continue
			}
			host, port = h, p
			used[lease{Host: h, Port: p}] = true
			r.own[lease{Host: h, Port: p}] = true
			return nil
		}
	})
	if err != nil {
		return "", 0, err
	}

	return host, port, nil
}

// Release removes the pair from the shared set, making it reusable.
func (r *Registry) Release(host string, port int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.withState(func(used map[lease]bool) error {
		delete(used, lease{Host: host, Port: port})
		delete(r.own, lease{Host: host, Port: port})
		return nil
	})
}

// ReleaseAll drops every pair this registry still holds.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.withState(func(used map[lease]bool) error {
		for l := range r.own {
			delete(used, l)
			delete(r.own, l)
		}
		return nil
	})
}

// withState runs fn over the shared set while holding the advisory lock,
// then writes the (possibly modified) set back. The critical section covers
// only this read-check-write.
func (r *Registry) withState(fn func(used map[lease]bool) error) error {
	lockFile, err := os.OpenFile(r.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open port lock: %w", err)
	}
	defer lockFile.Close()

	if err := lockExclusive(lockFile); err != nil {
		return fmt.Errorf("acquire port lock: %w", err)
	}
	defer unlock(lockFile)

	used, err := r.readState()
	if err != nil {
		return err
	}

	if err := fn(used); err != nil {
		return err
	}

	return r.writeState(used)
}

func (r *Registry) readState() (map[lease]bool, error) {
	used := make(map[lease]bool)

	raw, err := os.ReadFile(r.statePath)
	if os.IsNotExist(err) {
		return used, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read port state: %w", err)
	}

	var entries []persistedLease
	if err := json.Unmarshal(raw, &entries); err != nil {
		// A torn write from a crashed runner: start over rather than
		// blocking every suite on the machine.
		return used, nil
	}
	for _, e := range entries {
		used[lease{Host: e.Host, Port: e.Port}] = true
	}
	return used, nil
}

func (r *Registry) writeState(used map[lease]bool) error {
	entries := make([]persistedLease, 0, len(used))
	for l := range used {
		entries = append(entries, persistedLease{Host: l.Host, Port: l.Port})
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal port state: %w", err)
	}

	tmp := r.statePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write port state: %w", err)
	}
	if err := os.Rename(tmp, r.statePath); err != nil {
		return fmt.Errorf("replace port state: %w", err)
	}
	return nil
}

// bindEphemeral asks the OS for a free port on loopback and closes the
// listener immediately; the registry's shared set is what prevents reuse
// races between harness processes.
func bindEphemeral() (string, int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", 0, fmt.Errorf("bind ephemeral port: %w", err)
	}
	defer l.Close()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return "", 0, fmt.Errorf("unexpected listener address %v", l.Addr())
	}
	return "127.0.0.1", addr.Port, nil
}
