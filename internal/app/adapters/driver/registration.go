package driver

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ircheck/internal/app/adapters/client"
	"ircheck/internal/app/adapters/metrics"
	"ircheck/internal/app/domain/irc"
	"ircheck/internal/app/domain/match"
)

// ConnectOptions configures the full connection sequence of ConnectClient.
type ConnectOptions struct {
	Capabilities []string
	// SkipOnCapNak maps a CAP NAK to CapabilityNotSupportedError instead of
	// an assertion failure, so the enclosing test can skip itself.
	SkipOnCapNak bool

	Account  string // defaults to the nick
	Password string // enables SASL PLAIN when set
	Ident    string // defaults to "username"
}

// getRegistrationMessage reads the next message relevant to the handshake:
// NOTICEs are filtered out and peer PINGs answered transparently.
func (d *Driver) getRegistrationMessage(name string) (*irc.Message, error) {
	for {
		msg, err := d.GetMessage(name, false, func(m *irc.Message) bool {
			return m.Command != "NOTICE" && m.Command != irc.RplWelcome
		})
		if err != nil {
			return nil, err
		}
		if msg.Command == "PING" && len(msg.Params) > 0 {
			if err := d.SendLine(name, "PONG :"+msg.Params[0]); err != nil {
				return nil, err
			}
			continue
		}
		return msg, nil
	}
}

// GetCapLS requests the capability list and merges the (possibly multi-line)
// response into one token→value map. A "*" in place of the final segment
// marker means more lines follow.
func (d *Driver) GetCapLS(name string) (map[string]string, error) {
	if err := d.SendLine(name, "CAP LS 302"); err != nil {
		return nil, err
	}

	caps := make(map[string]string)
	for {
		msg, err := d.getRegistrationMessage(name)
		if err != nil {
			return nil, err
		}
		if err := match.Assert(msg, match.Expect{
			Command: match.Exact("CAP"),
			Params:  []match.Field{match.Any(), match.Exact("LS"), match.Any(), match.Any()},
		}); err != nil {
			// A short final segment has only three params.
			if err := match.Assert(msg, match.Expect{
				Command: match.Exact("CAP"),
				Params:  []match.Field{match.Any(), match.Exact("LS"), match.Any()},
			}); err != nil {
				return nil, err
			}
		}

		if msg.Params[2] == "*" {
			mergeCapTokens(caps, msg.Params[3])
			continue
		}
		mergeCapTokens(caps, msg.Params[2])
		return caps, nil
	}
}

func mergeCapTokens(into map[string]string, tokens string) {
	for _, tok := range strings.Fields(tokens) {
		if eq := strings.IndexByte(tok, '='); eq != -1 {
			into[tok[:eq]] = tok[eq+1:]
		} else {
			into[tok] = ""
		}
	}
}

// RequestCapabilities asks the server for a capability subset and waits for
// the ACK. A NAK becomes CapabilityNotSupportedError when skipOnNak is set.
func (d *Driver) RequestCapabilities(name string, caps []string, skipOnNak bool) error {
	if err := d.SendLine(name, "CAP REQ :"+strings.Join(caps, " ")); err != nil {
		return err
	}

	msg, err := d.getRegistrationMessage(name)
	if err != nil {
		return err
	}

	err = match.Assert(msg, match.Expect{
		Command: match.Exact("CAP"),
		Params:  []match.Field{match.Any(), match.Exact("ACK"), match.Any()},
	})
	if err != nil && skipOnNak {
		return &CapabilityNotSupportedError{Capabilities: caps}
	}
	return err
}

func saslPlainBlob(authzid, authcid, password string) string {
	blob := authzid + "\x00" + authcid + "\x00" + password
	return base64.StdEncoding.EncodeToString([]byte(blob))
}

// AuthenticatePlain performs a SASL PLAIN exchange. Only numerics 900 and
// 903 count as success.
func (d *Driver) AuthenticatePlain(name, account, password string) error {
	if err := d.SendLine(name, "AUTHENTICATE PLAIN"); err != nil {
		return err
	}

	msg, err := d.getRegistrationMessage(name)
	if err != nil {
		return err
	}
	if err := match.Assert(msg, match.Expect{
		Command: match.Exact("AUTHENTICATE"),
		Params:  []match.Field{match.Exact("+")},
	}); err != nil {
		return err
	}

	if err := d.SendLine(name, "AUTHENTICATE "+saslPlainBlob(account, account, password)); err != nil {
		return err
	}

	msg, err = d.getRegistrationMessage(name)
	if err != nil {
		return err
	}
	if msg.Command != irc.RplLoggedIn && msg.Command != irc.RplSaslSuccess {
		return fmt.Errorf("%w: server answered %s", ErrAuthenticationFailed, msg)
	}
	return nil
}

// SkipToWelcome reads (answering peer PINGs) until the welcome numeric and
// returns everything seen on the way.
func (d *Driver) SkipToWelcome(name string) ([]*irc.Message, error) {
	var seen []*irc.Message
	for {
		msg, err := d.GetMessage(name, false, nil)
		if err != nil {
			return seen, err
		}
		seen = append(seen, msg)

		switch msg.Command {
		case irc.RplWelcome:
			return seen, nil
		case "PING":
			if len(msg.Params) > 0 {
				if err := d.SendLine(name, "PONG :"+msg.Params[0]); err != nil {
					return seen, err
				}
			}
		}
	}
}

// ConnectClient adds a session and walks it through capability negotiation,
// authentication and registration up to the welcome burst, accumulating
// ISUPPORT tokens into d.Support. The whole handshake is retried exactly
// once if the server closes the connection mid-way, a known transient
// failure mode of some implementations (ident lookup rejections).
func (d *Driver) ConnectClient(name, nick string, opts ConnectOptions) error {
	err := d.registerClient(name, nick, opts)
	if err != nil && errors.Is(err, client.ErrConnectionClosed) {
		metrics.RegistrationRetries.Inc()
		d.log.Warn("Registration interrupted by server, retrying once",
			slog.String("client", name), slog.String("error", err.Error()))

		d.RemoveClient(name)
		time.Sleep(time.Second)
		err = d.registerClient(name, nick, opts)
	}
	return err
}

func (d *Driver) registerClient(name, nick string, opts ConnectOptions) error {
	if _, err := d.AddClient(name); err != nil {
		return err
	}

	if len(opts.Capabilities) > 0 {
		if _, err := d.GetCapLS(name); err != nil {
			return err
		}
		if err := d.RequestCapabilities(name, opts.Capabilities, opts.SkipOnCapNak); err != nil {
			return err
		}
	}

	if opts.Password != "" {
		account := opts.Account
		if account == "" {
			account = nick
		}
		if err := d.AuthenticatePlain(name, account, opts.Password); err != nil {
			return err
		}
	}

	ident := opts.Ident
	if ident == "" {
		ident = "username"
	}
	if err := d.SendLine(name, "NICK "+nick); err != nil {
		return err
	}
	if err := d.SendLine(name, fmt.Sprintf("USER %s * * :Realname", ident)); err != nil {
		return err
	}
	if len(opts.Capabilities) > 0 {
		if err := d.SendLine(name, "CAP END"); err != nil {
			return err
		}
	}

	if _, err := d.SkipToWelcome(name); err != nil {
		return err
	}

	// Drain the rest of the welcome burst behind a sentinel, picking up
	// ISUPPORT tokens along the way.
	msgs, err := d.GetMessages(name, true)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if msg.Command == irc.RplISupport && len(msg.Params) > 2 {
			mergeSupportTokens(d.Support, msg.Params[1:len(msg.Params)-1])
		}
	}

	d.log.Debug("Client registered", slog.String("client", name), slog.String("nick", nick))
	return nil
}

// mergeSupportTokens folds 005 parameters (bare TOKEN or TOKEN=VALUE) into
// the accumulated support map.
func mergeSupportTokens(into map[string]string, params []string) {
	for _, param := range params {
		if eq := strings.IndexByte(param, '='); eq != -1 {
			into[param[:eq]] = param[eq+1:]
		} else {
			into[param] = ""
		}
	}
}
