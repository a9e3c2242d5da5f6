package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ircheck/internal/app/adapters/metrics"
	"ircheck/internal/app/domain/irc"
	"ircheck/pkg/logger"
)

var (
	// ErrConnectionClosed means the peer closed or reset the connection. It
	// is distinct from ErrTimeout so callers can tell "dead" from "slow".
	ErrConnectionClosed = errors.New("connection closed by peer")
	ErrTimeout          = errors.New("timed out waiting for data")
	ErrNotConnected     = errors.New("not connected")
)

var tokenSeq atomic.Uint64

// Options bound the blocking calls; zero values pick the defaults below.
type Options struct {
	ConnectTimeout time.Duration
	SyncTimeout    time.Duration // sentinel round-trip budget in GetMessages
	ReadTimeout    time.Duration // overall budget of one GetMessage call
	SendRate       rate.Limit    // lines per second, 0 = unlimited
	SendBurst      int

	// Recorder, when set, observes every raw line in either direction
	// ("send"/"recv"); the driver points it at the transcript store.
	Recorder func(dir, line string)
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = 10 * time.Second
	}
	if out.SyncTimeout <= 0 {
		out.SyncTimeout = 5 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 30 * time.Second
	}
	if out.SendBurst <= 0 {
		out.SendBurst = 1
	}
	return out
}

// Client owns one connection to the server under test: a raw byte buffer
// split on CRLF, a parsed-but-unconsumed message queue and the sentinel
// synchronization primitive. Not safe for concurrent use; each test driver
// owns its sessions exclusively.
type Client struct {
	log  logger.Logger
	name string
	opts Options

	tr        transport
	connected bool
	buffer    string
	pending   []*irc.Message
	limiter   *rate.Limiter
}

func New(log logger.Logger, name string, opts Options) *Client {
	o := opts.withDefaults()

	var limiter *rate.Limiter
	if o.SendRate > 0 {
		limiter = rate.NewLimiter(o.SendRate, o.SendBurst)
	}

	return &Client{
		log:     logger.NewPrefixedLogger(log, name),
		name:    name,
		opts:    o,
		limiter: limiter,
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Connected() bool { return c.connected }

func (c *Client) Connect(host string, port int, useTLS bool) error {
	tr, err := dialTCP(host, port, useTLS, c.opts.ConnectTimeout)
	if err != nil {
		return err
	}

	c.tr = tr
	c.connected = true
	metrics.ConnectionsOpened.With(connLabels("tcp", useTLS)).Inc()
	c.log.Debug("Connected", slog.String("host", host), slog.Int("port", port), slog.Bool("tls", useTLS))
	return nil
}

func (c *Client) ConnectWebSocket(url string) error {
	tr, err := dialWebSocket(url, c.opts.ConnectTimeout)
	if err != nil {
		return err
	}

	c.tr = tr
	c.connected = true
	metrics.ConnectionsOpened.With(connLabels("websocket", strings.HasPrefix(url, "wss"))).Inc()
	c.log.Debug("Connected over websocket", slog.String("url", url))
	return nil
}

// Disconnect closes the connection without a QUIT. Safe to call twice.
func (c *Client) Disconnect() {
	if c.tr != nil {
		_ = c.tr.close()
		c.tr = nil
	}
	c.connected = false
}

func (c *Client) SendLine(line string) error {
	if !c.connected || c.tr == nil {
		return ErrNotConnected
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return err
		}
	}

	if err := c.tr.writeLine(line); err != nil {
		c.connected = false
		return err
	}
	metrics.LinesSent.Inc()
	if c.opts.Recorder != nil {
		c.opts.Recorder("send", line)
	}
	c.log.Trace("C: " + line)
	return nil
}

// nextLine pops one complete line off the raw buffer.
func (c *Client) nextLine() (string, bool) {
	i := strings.Index(c.buffer, "\r\n")
	if i == -1 {
		return "", false
	}
	line := c.buffer[:i]
	c.buffer = c.buffer[i+2:]
	return line, true
}

// parseLine decodes one buffered line, skipping anything malformed: live
// traffic may contain stray lines and that must not kill the receive loop.
func (c *Client) parseLine(line string) *irc.Message {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	msg, err := irc.ParseMessage(line)
	if err != nil {
		c.log.Warn("Skipping malformed line", slog.String("line", line))
		return nil
	}
	metrics.LinesReceived.Inc()
	if c.opts.Recorder != nil {
		c.opts.Recorder("recv", line)
	}
	c.log.Trace("S: " + line)
	return msg
}

// fill reads one chunk into the buffer, waiting at most until deadline.
func (c *Client) fill(deadline time.Time) error {
	if !c.connected || c.tr == nil {
		return ErrConnectionClosed
	}
	chunk, err := c.tr.readChunk(deadline)
	if err != nil {
		if errors.Is(err, errReadTimeout) {
			return errReadTimeout
		}
		c.connected = false
		return err
	}
	c.buffer += chunk
	return nil
}

// drainBuffered parses every complete line currently buffered into pending.
func (c *Client) drainBuffered() {
	for {
		line, ok := c.nextLine()
		if !ok {
			return
		}
		if msg := c.parseLine(line); msg != nil {
			c.pending = append(c.pending, msg)
		}
	}
}

// GetMessages returns every message the peer has queued for us. With
// synchronize, a sentinel PING carrying a unique token is sent first and
// reads continue until the matching PONG arrives: everything received before
// the sentinel reply is returned, anything after it stays buffered for the
// next call. Without synchronize, only what is already buffered (plus one
// opportunistic short read) is returned.
func (c *Client) GetMessages(synchronize bool) ([]*irc.Message, error) {
	if !synchronize {
		if err := c.fill(time.Now().Add(100 * time.Millisecond)); err != nil && !errors.Is(err, errReadTimeout) {
			c.drainBuffered()
			return c.takePending(), err
		}
		c.drainBuffered()
		return c.takePending(), nil
	}

	token := fmt.Sprintf("ircheck-%d-%d", os.Getpid(), tokenSeq.Add(1))
	start := time.Now()
	if err := c.SendLine("PING :" + token); err != nil {
		return nil, err
	}

	deadline := start.Add(c.opts.SyncTimeout)
	for {
		line, ok := c.nextLine()
		if ok {
			msg := c.parseLine(line)
			if msg == nil {
				continue
			}
			if msg.Command == "PONG" && len(msg.Params) > 0 && msg.Params[len(msg.Params)-1] == token {
				metrics.SyncRoundTrips.Observe(time.Since(start).Seconds())
				return c.takePending(), nil
			}
			c.pending = append(c.pending, msg)
			continue
		}

		if time.Now().After(deadline) {
			// The server never answered the sentinel; hand back whatever
			// arrived rather than failing the whole call.
			c.log.Warn("Sentinel reply not seen before deadline", slog.String("token", token))
			return c.takePending(), nil
		}

		step := time.Now().Add(250 * time.Millisecond)
		if step.After(deadline) {
			step = deadline
		}
		if err := c.fill(step); err != nil {
			if errors.Is(err, errReadTimeout) {
				continue
			}
			c.drainBuffered()
			return c.takePending(), err
		}
	}
}

func (c *Client) takePending() []*irc.Message {
	msgs := c.pending
	c.pending = nil
	return msgs
}

// GetMessage blocks for the next message passing filter (nil accepts all).
// Messages rejected by the filter are dropped. The call fails with
// ErrTimeout after the read budget, or ErrConnectionClosed once the peer is
// gone and the buffer is exhausted.
func (c *Client) GetMessage(synchronize bool, filter func(*irc.Message) bool) (*irc.Message, error) {
	deadline := time.Now().Add(c.opts.ReadTimeout)

	for {
		msgs, err := c.GetMessages(synchronize)
		synchronize = false

		for i, msg := range msgs {
			if filter == nil || filter(msg) {
				// Anything after the match stays queued for later calls.
				c.pending = append(msgs[i+1:], c.pending...)
				return msg, nil
			}
			c.log.Trace("Filtered out: " + msg.String())
		}

		if err != nil {
			return nil, err
		}
		if !c.connected {
			return nil, ErrConnectionClosed
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, c.opts.ReadTimeout)
		}
	}
}

func connLabels(transportName string, secure bool) map[string]string {
	security := "plaintext"
	if secure {
		security = "tls"
	}
	return map[string]string{"transport": transportName, "security": security}
}
