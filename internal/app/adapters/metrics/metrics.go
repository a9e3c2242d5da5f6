package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsOpened counts client connections by transport and security.
	ConnectionsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_connections_opened_total",
			Help: "Client connections opened against servers under test",
		},
		[]string{"transport", "security"},
	)

	// ActiveSessions tracks sessions currently held by drivers.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harness_active_sessions",
		Help: "Client sessions currently connected",
	})

	LinesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harness_lines_sent_total",
		Help: "Raw protocol lines written to servers under test",
	})

	LinesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harness_lines_received_total",
		Help: "Raw protocol lines parsed from servers under test",
	})

	// SyncRoundTrips measures the sentinel ping/pong synchronization latency.
	SyncRoundTrips = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harness_sync_roundtrip_seconds",
		Help:    "Latency of the sentinel synchronization round-trip",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
	})

	// RegistrationRetries counts handshakes re-run after a flaky disconnect.
	RegistrationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harness_registration_retries_total",
		Help: "Registration sequences retried after an unexpected close",
	})

	// JoinFailures counts rejected channel joins by numeric.
	JoinFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_join_failures_total",
			Help: "Channel join attempts rejected by the server",
		},
		[]string{"code"},
	)

	// PortLeases tracks (host, port) pairs currently held by this process.
	PortLeases = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harness_port_leases",
		Help: "Port leases currently held",
	})
)
