package driver

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"ircheck/internal/app/ports"
)

// fakeServer is a minimal scripted IRC server: enough of the registration,
// CAP, SASL and JOIN sub-protocols to drive the orchestrator end to end over
// a real socket.
type fakeServer struct {
	ln net.Listener
	wg sync.WaitGroup

	// advertised capabilities, split over two CAP LS lines.
	capsFirst  string
	capsSecond string

	accounts map[string]string // account -> password
	joinFail map[string]string // lowercased channel -> numeric

	// closeFirstHandshake makes the very first connection die right after
	// NICK, imitating servers that drop clients on failed ident lookups.
	closeFirstHandshake bool
	handshakes          atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		capsFirst:  "message-tags server-time sasl=PLAIN",
		capsSecond: "multi-prefix echo-message",
		accounts:   map[string]string{},
		joinFail:   map[string]string{},
	}
}

func (s *fakeServer) listen(host string, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}
	s.ln = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handle(conn)
			}()
		}
	}()
	return nil
}

func (s *fakeServer) stop() {
	if s.ln != nil {
		_ = s.ln.Close()
		s.ln = nil
	}
	s.wg.Wait()
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	connNum := s.handshakes.Add(1)
	reader := bufio.NewReader(conn)
	nick := "*"

	write := func(lines ...string) {
		for _, l := range lines {
			if _, err := conn.Write([]byte(l + "\r\n")); err != nil {
				return
			}
		}
	}

	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line := strings.TrimRight(raw, "\r\n")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "PING":
			token := strings.TrimPrefix(fields[len(fields)-1], ":")
			write("PONG :" + token)

		case "CAP":
			switch fields[1] {
			case "LS":
				write(
					"CAP * LS * :"+s.capsFirst,
					"CAP * LS :"+s.capsSecond,
				)
			case "REQ":
				requested := strings.TrimPrefix(strings.Join(fields[2:], " "), ":")
				if s.advertises(requested) {
					write("CAP * ACK :" + requested)
				} else {
					write("CAP * NAK :" + requested)
				}
			case "END":
			}

		case "AUTHENTICATE":
			if fields[1] == "PLAIN" {
				write("AUTHENTICATE +")
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(fields[1])
			if err != nil {
				write(":irc.fake 904 " + nick + " :SASL authentication failed")
				continue
			}
			parts := strings.Split(string(decoded), "\x00")
			if len(parts) == 3 && s.accounts[parts[1]] == parts[2] {
				write(":irc.fake 903 " + nick + " :SASL authentication successful")
			} else {
				write(":irc.fake 904 " + nick + " :SASL authentication failed")
			}

		case "NICK":
			nick = fields[1]
			if s.closeFirstHandshake && connNum == 1 {
				return
			}

		case "USER":
			write(
				":irc.fake NOTICE * :*** Looking up your hostname...",
				fmt.Sprintf(":irc.fake 001 %s :Welcome to the FakeNet %s", nick, nick),
				fmt.Sprintf(":irc.fake 005 %s CHANLIMIT=#:100 NICKLEN=32 :are supported by this server", nick),
				fmt.Sprintf(":irc.fake 005 %s MONITOR=100 UTF8ONLY :are supported by this server", nick),
				fmt.Sprintf(":irc.fake 376 %s :End of /MOTD command.", nick),
			)

		case "JOIN":
			channel := fields[1]
			if code, ok := s.joinFail[strings.ToLower(channel)]; ok {
				write(fmt.Sprintf(":irc.fake %s %s %s :Cannot join channel", code, nick, channel))
				continue
			}
			lower := strings.ToLower(channel)
			write(
				fmt.Sprintf(":%s!user@host JOIN %s", nick, lower),
				fmt.Sprintf(":irc.fake 353 %s = %s :@%s", nick, lower, nick),
				fmt.Sprintf(":irc.fake 366 %s %s :End of /NAMES list.", nick, lower),
			)
		}
	}
}

func (s *fakeServer) advertises(requested string) bool {
	advertised := map[string]bool{}
	for _, tok := range strings.Fields(s.capsFirst + " " + s.capsSecond) {
		name := tok
		if eq := strings.IndexByte(tok, '='); eq != -1 {
			name = tok[:eq]
		}
		advertised[name] = true
	}
	for _, cap := range strings.Fields(requested) {
		if !advertised[cap] {
			return false
		}
	}
	return true
}

// fakeController plugs the fake server into the harness through the same
// three operations a real process controller exposes.
type fakeController struct {
	srv *fakeServer
}

func (c *fakeController) Start(host string, port int, _ ports.ControllerOptions) error {
	return c.srv.listen(host, port)
}

func (c *fakeController) WaitUntilListening() error {
	// listen() only returns once the socket is bound.
	return nil
}

func (c *fakeController) Stop() error {
	c.srv.stop()
	return nil
}
