package client

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// transport hides the difference between a raw TCP/TLS stream and an
// IRC-over-WebSocket connection (one line per text frame).
type transport interface {
	// readChunk blocks until some bytes arrive or the deadline passes.
	// A deadline expiry is reported as errReadTimeout.
	readChunk(deadline time.Time) (string, error)
	writeLine(line string) error
	close() error
}

var errReadTimeout = errors.New("read deadline passed")

func classifyReadError(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return errReadTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrConnectionClosed
	}
	// Resets and broken pipes land here.
	return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
}

type tcpTransport struct {
	conn net.Conn
	buf  []byte
}

func dialTCP(host string, port int, useTLS bool, timeout time.Duration) (*tcpTransport, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if useTLS {
		// Servers under test run with self-signed certificates; this trust
		// model is test-only and must not leak into production reuse.
		tlsConn := tls.Client(conn, &tls.Config{InsecureSkipVerify: true}) // #nosec G402
		if err := tlsConn.SetDeadline(time.Now().Add(timeout)); err != nil {
			conn.Close()
			return nil, err
		}
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
		}
		_ = tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}

	return &tcpTransport{conn: conn, buf: make([]byte, 4096)}, nil
}

func (t *tcpTransport) readChunk(deadline time.Time) (string, error) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return "", classifyReadError(err)
	}
	n, err := t.conn.Read(t.buf)
	if n > 0 {
		return string(t.buf[:n]), nil
	}
	if err != nil {
		return "", classifyReadError(err)
	}
	return "", nil
}

func (t *tcpTransport) writeLine(line string) error {
	if _, err := t.conn.Write([]byte(line + "\r\n")); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

func (t *tcpTransport) close() error {
	return t.conn.Close()
}

type wsTransport struct {
	conn *websocket.Conn
}

func dialWebSocket(url string, timeout time.Duration) (*wsTransport, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		Subprotocols:     []string{"text.ircv3.net"},
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- test-only trust model
	}

	conn, resp, err := dialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) readChunk(deadline time.Time) (string, error) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return "", classifyReadError(err)
	}
	_, payload, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			return "", ErrConnectionClosed
		}
		return "", classifyReadError(err)
	}
	// Frames carry whole lines without the terminator; normalize so the
	// buffering layer sees the same shape as the stream transport.
	return strings.TrimRight(string(payload), "\r\n") + "\r\n", nil
}

func (t *wsTransport) writeLine(line string) error {
	if err := t.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

func (t *wsTransport) close() error {
	return t.conn.Close()
}
