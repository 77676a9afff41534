package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Packet counters
	PacketsIn      atomic.Int64 // total datagrams received
	PacketsOut     atomic.Int64 // total datagrams sent
	PacketsDropped atomic.Int64 // malformed or unknown-kind datagrams
	BytesIn        atomic.Int64 // total bytes received
	BytesOut       atomic.Int64 // total bytes sent

	// Session counters
	Logins         atomic.Int64 // successful logins
	LoginsRejected atomic.Int64 // duplicate-username logins refused
	Logouts        atomic.Int64 // sessions ended (client request + reaped)
	NotLoggedIn    atomic.Int64 // packets refused for missing session
	SessionsReaped atomic.Int64 // sessions evicted for inactivity

	// Chat counters
	MessagesRelayed atomic.Int64 // SAY broadcasts performed
	ChannelsCreated atomic.Int64 // channels created during this run
	ChannelsDeleted atomic.Int64 // channels deleted during this run
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	PacketsIn      int64 `json:"packets_in"`
	PacketsOut     int64 `json:"packets_out"`
	PacketsDropped int64 `json:"packets_dropped"`
	BytesIn        int64 `json:"bytes_in"`
	BytesOut       int64 `json:"bytes_out"`

	Logins         int64 `json:"logins"`
	LoginsRejected int64 `json:"logins_rejected"`
	Logouts        int64 `json:"logouts"`
	NotLoggedIn    int64 `json:"not_logged_in"`
	SessionsReaped int64 `json:"sessions_reaped"`

	MessagesRelayed int64 `json:"messages_relayed"`
	ChannelsCreated int64 `json:"channels_created"`
	ChannelsDeleted int64 `json:"channels_deleted"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:          uptime.Truncate(time.Second).String(),
		UptimeSeconds:   int64(uptime.Seconds()),
		PacketsIn:       m.PacketsIn.Load(),
		PacketsOut:      m.PacketsOut.Load(),
		PacketsDropped:  m.PacketsDropped.Load(),
		BytesIn:         m.BytesIn.Load(),
		BytesOut:        m.BytesOut.Load(),
		Logins:          m.Logins.Load(),
		LoginsRejected:  m.LoginsRejected.Load(),
		Logouts:         m.Logouts.Load(),
		NotLoggedIn:     m.NotLoggedIn.Load(),
		SessionsReaped:  m.SessionsReaped.Load(),
		MessagesRelayed: m.MessagesRelayed.Load(),
		ChannelsCreated: m.ChannelsCreated.Load(),
		ChannelsDeleted: m.ChannelsDeleted.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"pkts_in", s.PacketsIn,
		"pkts_out", s.PacketsOut,
		"pkts_dropped", s.PacketsDropped,
		"logins", s.Logins,
		"msgs", s.MessagesRelayed,
		"reaped", s.SessionsReaped,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
