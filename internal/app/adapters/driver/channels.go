package driver

import (
	"strings"

	"ircheck/internal/app/adapters/metrics"
	"ircheck/internal/app/domain/irc"
)

// JoinChannel sends a JOIN and reads until the server either echoes the join
// (success) or answers with one of the known rejection numerics, which is
// returned as a *ChannelJoinError.
func (d *Driver) JoinChannel(name, channel string) error {
	if err := d.SendLine(name, "JOIN "+channel); err != nil {
		return err
	}

	msg, err := d.GetMessage(name, true, func(m *irc.Message) bool {
		if m.Command == "JOIN" && len(m.Params) > 0 && strings.EqualFold(m.Params[0], channel) {
			return true
		}
		return irc.JoinFailNumerics[m.Command]
	})
	if err != nil {
		return err
	}

	if msg.Command == "JOIN" {
		return nil
	}
	metrics.JoinFailures.WithLabelValues(msg.Command).Inc()
	return &ChannelJoinError{Code: msg.Command, Params: msg.Params}
}
