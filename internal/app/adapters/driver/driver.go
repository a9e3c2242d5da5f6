package driver

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"ircheck/internal/app/adapters/client"
	"ircheck/internal/app/adapters/metrics"
	"ircheck/internal/app/domain/irc"
	"ircheck/internal/app/infrastructure/config"
	"ircheck/internal/app/infrastructure/portalloc"
	"ircheck/internal/app/infrastructure/transcript"
	"ircheck/internal/app/ports"
	"ircheck/pkg/logger"
)

// Driver runs one test case: it leases an address, points the controller at
// it, owns every client session of the case and walks them through
// registration, capability negotiation, authentication and channel joins.
// One driver per test case; sessions are never shared.
type Driver struct {
	log         logger.Logger
	cfg         *config.Config
	controller  ports.ControllerPort
	registry    *portalloc.Registry
	transcripts *transcript.Store

	hostname string
	port     int
	opts     ports.ControllerOptions
	started  bool
	attached bool
	wsURL    string

	clients map[string]ports.SessionPort

	// Support accumulates 005 ISUPPORT tokens seen during registration;
	// bare tokens map to the empty string.
	Support map[string]string
}

func New(log logger.Logger, cfg *config.Config, controller ports.ControllerPort, registry *portalloc.Registry) *Driver {
	return &Driver{
		log:         log,
		cfg:         cfg,
		controller:  controller,
		registry:    registry,
		transcripts: transcript.New(0, 0),
		clients:     make(map[string]ports.SessionPort),
		Support:     make(map[string]string),
	}
}

// Transcripts exposes the recorded traffic of this case, for artifacts.
func (d *Driver) Transcripts() *transcript.Store { return d.transcripts }

// Setup leases an address and brings the server under test up on it.
func (d *Driver) Setup(opts ports.ControllerOptions) error {
	host, port, err := d.registry.Lease()
	if err != nil {
		return fmt.Errorf("lease address: %w", err)
	}
	d.hostname, d.port, d.opts = host, port, opts
	metrics.PortLeases.Inc()

	if err := d.controller.Start(host, port, opts); err != nil {
		d.releaseLease()
		return fmt.Errorf("start server: %w", err)
	}
	d.started = true

	if err := d.controller.WaitUntilListening(); err != nil {
		d.Teardown()
		return fmt.Errorf("wait for server: %w", err)
	}

	d.log.Debug("Server under test is listening", slog.String("host", host), slog.Int("port", port))
	return nil
}

// Teardown stops the server, drops every session and releases the lease.
// Safe to call more than once.
func (d *Driver) Teardown() {
	for name := range d.clients {
		d.RemoveClient(name)
	}

	if d.started {
		if err := d.controller.Stop(); err != nil {
			d.log.Warn("Stopping server under test", slog.String("error", err.Error()))
		}
		d.started = false
	}

	d.releaseLease()
}

// Attach points the driver at an already-running server instead of leasing
// an address and starting one through the controller. Teardown then only
// drops the sessions.
func (d *Driver) Attach(host string, port int, useTLS bool) {
	d.hostname, d.port = host, port
	d.opts.TLS = useTLS
	d.attached = true
}

// AttachWebSocket is Attach for a websocket listener; sessions added
// afterwards connect over it.
func (d *Driver) AttachWebSocket(url string) {
	d.wsURL = url
	d.attached = true
}

func (d *Driver) releaseLease() {
	if d.attached {
		d.hostname, d.port = "", 0
		return
	}
	if d.hostname == "" {
		return
	}
	if err := d.registry.Release(d.hostname, d.port); err != nil {
		d.log.Warn("Releasing port lease", slog.String("error", err.Error()))
	}
	d.hostname, d.port = "", 0
	metrics.PortLeases.Dec()
}

// Addr returns the leased address of the server under test.
func (d *Driver) Addr() (string, int) {
	return d.hostname, d.port
}

func (d *Driver) clientOptions(name string) client.Options {
	c := d.cfg.Client
	return client.Options{
		ConnectTimeout: time.Duration(c.ConnectTimeoutSecs) * time.Second,
		SyncTimeout:    time.Duration(c.SyncTimeoutSecs) * time.Second,
		ReadTimeout:    time.Duration(c.ReadTimeoutSecs) * time.Second,
		SendRate:       rate.Limit(c.SendRate),
		SendBurst:      c.SendBurst,
		Recorder: func(dir, line string) {
			d.transcripts.Record(name, dir, line)
		},
	}
}

// AddClient connects a new session to the server under test.
func (d *Driver) AddClient(name string) (ports.SessionPort, error) {
	if _, exists := d.clients[name]; exists {
		return nil, fmt.Errorf("client %q already exists", name)
	}

	c := client.New(d.log, name, d.clientOptions(name))
	var err error
	if d.wsURL != "" {
		err = c.ConnectWebSocket(d.wsURL)
	} else {
		err = c.Connect(d.hostname, d.port, d.opts.TLS)
	}
	if err != nil {
		return nil, err
	}

	d.clients[name] = c
	metrics.ActiveSessions.Inc()
	return c, nil
}

// AddWebSocketClient connects a session over the server's websocket
// listener instead of the plain stream one.
func (d *Driver) AddWebSocketClient(name, url string) (ports.SessionPort, error) {
	if _, exists := d.clients[name]; exists {
		return nil, fmt.Errorf("client %q already exists", name)
	}

	c := client.New(d.log, name, d.clientOptions(name))
	if err := c.ConnectWebSocket(url); err != nil {
		return nil, err
	}

	d.clients[name] = c
	metrics.ActiveSessions.Inc()
	return c, nil
}

// Client returns the named session, nil when unknown.
func (d *Driver) Client(name string) ports.SessionPort {
	return d.clients[name]
}

// RemoveClient disconnects a session without QUIT and forgets it.
func (d *Driver) RemoveClient(name string) {
	c, ok := d.clients[name]
	if !ok {
		return
	}
	c.Disconnect()
	delete(d.clients, name)
	metrics.ActiveSessions.Dec()
}

func (d *Driver) session(name string) (ports.SessionPort, error) {
	c, ok := d.clients[name]
	if !ok {
		return nil, fmt.Errorf("no such client %q", name)
	}
	return c, nil
}

// SendLine sends one raw line on the named session.
func (d *Driver) SendLine(name, line string) error {
	c, err := d.session(name)
	if err != nil {
		return err
	}
	return c.SendLine(line)
}

// settle sleeps the configured minimum before a synchronized read; only
// needed for servers that do not serialize their replies.
func (d *Driver) settle() {
	if ms := d.cfg.Client.SettleMillis; ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}

// GetMessages drains the named session, synchronizing by default.
func (d *Driver) GetMessages(name string, synchronize bool) ([]*irc.Message, error) {
	c, err := d.session(name)
	if err != nil {
		return nil, err
	}
	if synchronize {
		d.settle()
	}
	return c.GetMessages(synchronize)
}

// GetMessage blocks for the next message on the named session.
func (d *Driver) GetMessage(name string, synchronize bool, filter func(*irc.Message) bool) (*irc.Message, error) {
	c, err := d.session(name)
	if err != nil {
		return nil, err
	}
	if synchronize {
		d.settle()
	}
	return c.GetMessage(synchronize, filter)
}
