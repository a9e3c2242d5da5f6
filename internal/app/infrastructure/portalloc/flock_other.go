//go:build !unix

package portalloc

import "os"

// No advisory locking off unix; parallel runners on such platforms fall back
// to the in-process mutex plus the OS refusing to double-bind.
func lockExclusive(_ *os.File) error { return nil }

func unlock(_ *os.File) {}
