package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StartMetricsHTTP starts a lightweight HTTP server that exposes
// /metrics in Prometheus text exposition format plus a /healthz
// probe. It runs in the background and shuts down when the server
// context is cancelled.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return // metrics endpoint disabled
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
}

// handleMetrics writes all metrics in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}

	_, _ = fmt.Fprintf(w, "# HELP partyline_uptime_seconds Server uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE partyline_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "partyline_uptime_seconds %f\n", uptime)

	write("partyline_sessions_active", "Currently logged-in users.", "gauge",
		int64(s.sessions.Count()))
	write("partyline_channels_active", "Currently live channels.", "gauge",
		int64(s.channels.Count()))

	write("partyline_packets_in_total", "Total datagrams received.", "counter",
		m.PacketsIn.Load())
	write("partyline_packets_out_total", "Total datagrams sent.", "counter",
		m.PacketsOut.Load())
	write("partyline_packets_dropped_total", "Malformed or unknown-kind datagrams.", "counter",
		m.PacketsDropped.Load())
	write("partyline_bytes_in_total", "Total bytes received.", "counter",
		m.BytesIn.Load())
	write("partyline_bytes_out_total", "Total bytes sent.", "counter",
		m.BytesOut.Load())

	write("partyline_logins_total", "Successful logins.", "counter",
		m.Logins.Load())
	write("partyline_logins_rejected_total", "Duplicate-username logins refused.", "counter",
		m.LoginsRejected.Load())
	write("partyline_logouts_total", "Sessions ended.", "counter",
		m.Logouts.Load())
	write("partyline_not_logged_in_total", "Packets refused for missing session.", "counter",
		m.NotLoggedIn.Load())
	write("partyline_sessions_reaped_total", "Sessions evicted for inactivity.", "counter",
		m.SessionsReaped.Load())

	write("partyline_messages_relayed_total", "SAY broadcasts performed.", "counter",
		m.MessagesRelayed.Load())
	write("partyline_channels_created_total", "Channels created.", "counter",
		m.ChannelsCreated.Load())
	write("partyline_channels_deleted_total", "Channels deleted.", "counter",
		m.ChannelsDeleted.Load())
}
