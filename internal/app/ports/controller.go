package ports

// ControllerOptions is what a test case may ask of the server under test.
// Controllers are free to ignore options they always enable.
type ControllerOptions struct {
	Password    string
	TLS         bool
	RunServices bool
}

// ControllerPort drives the external server-under-test process. How the
// process is launched and configured is entirely the controller's business;
// the harness only ever calls these three operations.
type ControllerPort interface {
	Start(host string, port int, opts ControllerOptions) error
	// WaitUntilListening blocks until the server accepts connections on the
	// address given to Start.
	WaitUntilListening() error
	// Stop is idempotent and releases anything the controller holds.
	Stop() error
}

// HasDirectory is implemented by controllers whose configuration lives in a
// scratch directory.
type HasDirectory interface {
	Directory() string
}

// IsServices is implemented by controllers that also run a services package
// (NickServ and friends) next to the server.
type IsServices interface {
	WaitUntilServicesReady() error
}
