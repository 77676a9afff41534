package server

import (
	"log/slog"
	"time"
)

// startReaper launches the periodic inactivity scan. Each pass evicts
// every session that has sent no valid packet within the configured
// timeout, going through the same termination path as a client LOGOUT.
func (s *Server) startReaper() {
	go func() {
		ticker := time.NewTicker(s.cfg.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.reapOnce(time.Now())
			}
		}
	}()
}

// reapOnce performs a single expiry scan at the given time. Split out
// of the ticker loop so tests can drive it with a synthetic clock.
func (s *Server) reapOnce(now time.Time) {
	for username := range s.sessions.Expired(now, s.cfg.SessionTimeout) {
		slog.Info("reaping inactive session", "user", username)
		s.metrics.SessionsReaped.Add(1)
		s.metrics.Logouts.Add(1)
		s.terminateSession(username, "disconnected due to inactivity", true)
	}
	s.pruneInactive(now)
}

// pruneInactive drops stale entries from the rejection log suppressor
// so it stays a set of recently refused senders.
func (s *Server) pruneInactive(now time.Time) {
	s.inactiveMu.Lock()
	defer s.inactiveMu.Unlock()
	for name, last := range s.inactive {
		if now.Sub(last) >= s.cfg.SessionTimeout {
			delete(s.inactive, name)
		}
	}
}
