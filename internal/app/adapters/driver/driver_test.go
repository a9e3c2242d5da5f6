package driver

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ircheck/internal/app/infrastructure/config"
	"ircheck/internal/app/infrastructure/portalloc"
	"ircheck/internal/app/ports"
	"ircheck/pkg/logger"
)

func newTestDriver(t *testing.T, srv *fakeServer) *Driver {
	t.Helper()

	log := logger.New(filepath.Join(t.TempDir(), "test.log"))
	cfg := &config.Config{
		Client: config.Client{
			ConnectTimeoutSecs: 5,
			SyncTimeoutSecs:    3,
			ReadTimeoutSecs:    5,
		},
	}

	d := New(log, cfg, &fakeController{srv: srv}, portalloc.New(t.TempDir()))
	require.NoError(t, d.Setup(ports.ControllerOptions{}))
	t.Cleanup(d.Teardown)
	return d
}

func TestConnectClientFullHandshake(t *testing.T) {
	srv := newFakeServer()
	d := newTestDriver(t, srv)

	err := d.ConnectClient("main", "tester", ConnectOptions{
		Capabilities: []string{"message-tags", "server-time"},
	})
	require.NoError(t, err)

	// ISUPPORT tokens from both 005 lines land in the support map.
	assert.Equal(t, "32", d.Support["NICKLEN"])
	assert.Equal(t, "100", d.Support["MONITOR"])
	val, ok := d.Support["UTF8ONLY"]
	assert.True(t, ok)
	assert.Empty(t, val)
	assert.Equal(t, "#:100", d.Support["CHANLIMIT"])
}

func TestGetCapLSMergesContinuationLines(t *testing.T) {
	srv := newFakeServer()
	d := newTestDriver(t, srv)

	_, err := d.AddClient("main")
	require.NoError(t, err)

	caps, err := d.GetCapLS("main")
	require.NoError(t, err)

	assert.Equal(t, "PLAIN", caps["sasl"])
	for _, name := range []string{"message-tags", "server-time", "multi-prefix", "echo-message"} {
		val, ok := caps[name]
		assert.True(t, ok, name)
		assert.Empty(t, val)
	}
}

func TestRequestCapabilitiesNak(t *testing.T) {
	srv := newFakeServer()
	d := newTestDriver(t, srv)

	err := d.ConnectClient("main", "tester", ConnectOptions{
		Capabilities: []string{"draft/unsupported"},
		SkipOnCapNak: true,
	})
	require.Error(t, err)

	var capErr *CapabilityNotSupportedError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, []string{"draft/unsupported"}, capErr.Capabilities)
}

func TestRequestCapabilitiesNakWithoutSkip(t *testing.T) {
	srv := newFakeServer()
	d := newTestDriver(t, srv)

	err := d.ConnectClient("main", "tester", ConnectOptions{
		Capabilities: []string{"draft/unsupported"},
	})
	require.Error(t, err)

	var capErr *CapabilityNotSupportedError
	assert.False(t, errors.As(err, &capErr))
}

func TestAuthenticatePlain(t *testing.T) {
	srv := newFakeServer()
	srv.accounts["alice"] = "sesame"
	d := newTestDriver(t, srv)

	err := d.ConnectClient("main", "tester", ConnectOptions{
		Capabilities: []string{"sasl"},
		Account:      "alice",
		Password:     "sesame",
	})
	require.NoError(t, err)
}

func TestAuthenticatePlainWrongPassword(t *testing.T) {
	srv := newFakeServer()
	srv.accounts["alice"] = "sesame"
	d := newTestDriver(t, srv)

	err := d.ConnectClient("main", "tester", ConnectOptions{
		Capabilities: []string{"sasl"},
		Account:      "alice",
		Password:     "wrong",
	})
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestJoinChannel(t *testing.T) {
	srv := newFakeServer()
	d := newTestDriver(t, srv)

	require.NoError(t, d.ConnectClient("main", "tester", ConnectOptions{}))

	// The server may echo the channel in different case.
	require.NoError(t, d.JoinChannel("main", "#Chan"))
}

func TestJoinChannelRejected(t *testing.T) {
	srv := newFakeServer()
	srv.joinFail["#banned"] = "474"
	d := newTestDriver(t, srv)

	require.NoError(t, d.ConnectClient("main", "tester", ConnectOptions{}))

	err := d.JoinChannel("main", "#banned")
	require.Error(t, err)

	var joinErr *ChannelJoinError
	require.ErrorAs(t, err, &joinErr)
	assert.Equal(t, "474", joinErr.Code)
	assert.Contains(t, joinErr.Params, "#banned")
}

func TestConnectClientRetriesOnceAfterClose(t *testing.T) {
	srv := newFakeServer()
	srv.closeFirstHandshake = true
	d := newTestDriver(t, srv)

	err := d.ConnectClient("main", "tester", ConnectOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, srv.handshakes.Load())
}

func TestAddClientDuplicateName(t *testing.T) {
	srv := newFakeServer()
	d := newTestDriver(t, srv)

	_, err := d.AddClient("main")
	require.NoError(t, err)
	_, err = d.AddClient("main")
	require.Error(t, err)
}

func TestTeardownIsIdempotent(t *testing.T) {
	srv := newFakeServer()
	d := newTestDriver(t, srv)

	require.NoError(t, d.ConnectClient("main", "tester", ConnectOptions{}))
	d.Teardown()
	d.Teardown()

	assert.Nil(t, d.Client("main"))
}
