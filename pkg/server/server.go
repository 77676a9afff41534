// Package server implements the partyline chat server.
package server

import (
	"context"
	"net"
	"sync"
	"time"
)

// udpWriter is the outbound half of the UDP socket. Tests substitute a
// recording fake; production uses the *net.UDPConn itself.
type udpWriter interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// Server is the partyline chat server: one UDP socket, a session
// registry, a channel registry, a reaper and a metrics endpoint.
type Server struct {
	cfg      Config
	sessions *SessionRegistry
	channels *ChannelRegistry
	metrics  *Metrics
	conn     *net.UDPConn
	out      udpWriter
	ctx      context.Context
	cancel   context.CancelFunc

	// Usernames of recently refused unknown senders, tracked only to
	// keep repeated rejections out of the log.
	inactiveMu sync.Mutex
	inactive   map[string]time.Time

	shutdownOnce sync.Once
}

// New creates a new Server instance.
func New(cfg Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		sessions: NewSessionRegistry(),
		channels: NewChannelRegistry(cfg.DefaultChannel),
		metrics:  NewMetrics(),
		inactive: make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Sessions returns the session registry.
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

// Channels returns the channel registry.
func (s *Server) Channels() *ChannelRegistry {
	return s.channels
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
