package ports

import (
	"ircheck/internal/app/domain/irc"
)

// SessionPort is one client connection to the server under test. A session
// is owned by exactly one test driver and never shared between goroutines.
type SessionPort interface {
	Connect(host string, port int, useTLS bool) error
	ConnectWebSocket(url string) error
	Connected() bool

	SendLine(line string) error

	// GetMessages returns every message the peer had queued. When synchronize
	// is true it first establishes a synchronization point with a sentinel
	// ping round-trip, so the result is exactly what the peer had processed.
	GetMessages(synchronize bool) ([]*irc.Message, error)

	// GetMessage blocks for the next message passing filter (nil accepts
	// everything). Non-matching messages are discarded.
	GetMessage(synchronize bool, filter func(*irc.Message) bool) (*irc.Message, error)

	// Disconnect closes the connection without sending QUIT. Idempotent.
	Disconnect()
}
