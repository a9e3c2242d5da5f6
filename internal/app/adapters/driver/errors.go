package driver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAuthenticationFailed is returned when the server answers a SASL
// exchange with anything but the designated success numerics.
var ErrAuthenticationFailed = errors.New("authentication failed")

// ChannelJoinError is a deliberately failed JOIN: the server answered with
// one of the known rejection numerics.
type ChannelJoinError struct {
	Code   string
	Params []string
}

func (e *ChannelJoinError) Error() string {
	return fmt.Sprintf("failed to join channel (%s): %v", e.Code, e.Params)
}

// CapabilityNotSupportedError means the server refused a CAP REQ. Tests
// usually treat it as a skip, not a failure.
type CapabilityNotSupportedError struct {
	Capabilities []string
}

func (e *CapabilityNotSupportedError) Error() string {
	return "capability not supported: " + strings.Join(e.Capabilities, " or ")
}
