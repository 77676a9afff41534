package server

import (
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/mwren/partyline/pkg/model"
	"github.com/mwren/partyline/pkg/protocol"
)

// Start binds the UDP socket and launches the receive loop, the reaper
// and the metrics endpoint.
func (s *Server) Start() error {
	addr, err := net.ResolveUDPAddr("udp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: resolve addr: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.conn = conn
	s.out = conn

	if s.cfg.ChannelsFile != "" {
		if err := LoadChannelsFromYAML(s.cfg.ChannelsFile, s.channels); err != nil {
			slog.Error("failed to load channels config", "err", err)
		}
	}

	slog.Info("listening", "addr", s.cfg.Addr, "default_channel", s.channels.DefaultName())

	go s.serve()
	s.startReaper()
	s.StartMetricsHTTP()
	return nil
}

// serve reads datagrams until the socket is closed by Shutdown. A bad
// packet never ends the loop.
func (s *Server) serve() {
	buf := make([]byte, protocol.MaxDatagram)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				slog.Error("read error", "err", err)
				continue
			}
		}

		s.metrics.PacketsIn.Add(1)
		s.metrics.BytesIn.Add(int64(n))
		s.handlePacket(buf[:n], remoteAddr, time.Now())
	}
}

// handlePacket decodes one datagram, validates it against the current
// session state and executes its effect. now is the receipt time used
// for liveness bookkeeping.
func (s *Server) handlePacket(data []byte, addr *net.UDPAddr, now time.Time) {
	pkt, err := protocol.Unmarshal(data)
	if err != nil {
		s.metrics.PacketsDropped.Add(1)
		slog.Debug("dropping malformed packet", "from", addr, "len", len(data), "err", err)
		return
	}

	if !pkt.Kind.Known() || pkt.Kind == protocol.KindShutdown {
		// SHUTDOWN is server-to-client only.
		s.metrics.PacketsDropped.Add(1)
		slog.Debug("ignoring packet", "from", addr, "kind", pkt.Kind)
		return
	}

	switch pkt.Kind {
	case protocol.KindLogin:
		s.handleLogin(pkt, addr, now)
	case protocol.KindList:
		s.handleList(addr)
	case protocol.KindWho:
		s.handleWho(pkt, addr)
	default:
		// Everything else requires a live session. A valid packet from
		// a logged-in user refreshes its address and liveness exactly
		// once, before the per-kind effect runs.
		if !s.sessions.Touch(pkt.Username, addr, now) {
			s.rejectNotLoggedIn(pkt, addr, now)
			return
		}
		switch pkt.Kind {
		case protocol.KindLogout:
			s.metrics.Logouts.Add(1)
			s.terminateSession(pkt.Username, "logged out", false)
		case protocol.KindJoin:
			s.handleJoin(pkt)
		case protocol.KindLeave:
			s.handleLeave(pkt, addr)
		case protocol.KindSay:
			s.handleSay(pkt)
		case protocol.KindKeepAlive:
			// liveness refresh is the whole effect
		}
	}
}

func (s *Server) handleLogin(pkt *protocol.Packet, addr *net.UDPAddr, now time.Time) {
	if err := model.ValidateName(pkt.Username); err != nil {
		s.metrics.LoginsRejected.Add(1)
		s.sendNotice(protocol.KindLogout, "invalid username: "+err.Error(), addr)
		return
	}

	if err := s.sessions.Login(pkt.Username, addr, now); err != nil {
		s.metrics.LoginsRejected.Add(1)
		slog.Info("login refused", "user", pkt.Username, "from", addr)
		s.sendNotice(protocol.KindLogout,
			fmt.Sprintf("username %q is already logged in", pkt.Username), addr)
		return
	}

	s.channels.Join(s.channels.DefaultName(), pkt.Username)
	s.forgetInactive(pkt.Username)
	s.metrics.Logins.Add(1)
	slog.Info("user logged in", "user", pkt.Username, "from", addr)
	s.sendNotice(protocol.KindLogin,
		fmt.Sprintf("welcome %s, you are in channel %s", pkt.Username, s.channels.DefaultName()), addr)
}

func (s *Server) handleList(addr *net.UDPAddr) {
	names := s.channels.List()
	s.sendNotice(protocol.KindList, strings.Join(names, "\n"), addr)
}

func (s *Server) handleWho(pkt *protocol.Packet, addr *net.UDPAddr) {
	members := s.channels.Members(pkt.Channel)
	if members == nil {
		s.sendNotice(protocol.KindWho,
			fmt.Sprintf("channel %q does not exist", pkt.Channel), addr)
		return
	}
	sort.Strings(members)
	s.sendNotice(protocol.KindWho,
		fmt.Sprintf("users on %s: %s", pkt.Channel, strings.Join(members, ", ")), addr)
}

func (s *Server) handleJoin(pkt *protocol.Packet) {
	if pkt.Channel == "" {
		return
	}
	if s.channels.Join(pkt.Channel, pkt.Username) {
		s.metrics.ChannelsCreated.Add(1)
		slog.Info("channel created", "channel", pkt.Channel, "by", pkt.Username)
	}
}

func (s *Server) handleLeave(pkt *protocol.Packet, addr *net.UDPAddr) {
	removed, deleted := s.channels.Leave(pkt.Channel, pkt.Username)
	if !removed {
		s.sendNotice(protocol.KindLeave,
			fmt.Sprintf("you are not a member of channel %q", pkt.Channel), addr)
		return
	}
	if deleted {
		s.metrics.ChannelsDeleted.Add(1)
		slog.Info("channel deleted", "channel", pkt.Channel)
	}
}

// handleSay fans a message out to every member of the channel with a
// resolvable address, the sender included when it is a member. The
// member list and addresses are snapshotted before any send so no
// registry lock is held while writing to the socket.
func (s *Server) handleSay(pkt *protocol.Packet) {
	members := s.channels.Members(pkt.Channel)
	if members == nil {
		slog.Debug("say to nonexistent channel", "channel", pkt.Channel, "user", pkt.Username)
		return
	}

	raw := pkt.Marshal()
	s.metrics.MessagesRelayed.Add(1)

	for _, member := range members {
		memberAddr := s.sessions.AddrOf(member)
		if memberAddr == nil {
			continue // stale membership, skip silently
		}
		s.send(raw, memberAddr)
	}
}

// rejectNotLoggedIn replies with a forced-logout notice without
// mutating any registry. Repeated packets from the same unknown
// sender are answered every time but logged only once per window.
func (s *Server) rejectNotLoggedIn(pkt *protocol.Packet, addr *net.UDPAddr, now time.Time) {
	s.metrics.NotLoggedIn.Add(1)

	s.inactiveMu.Lock()
	last, seen := s.inactive[pkt.Username]
	quiet := seen && now.Sub(last) < s.cfg.SessionTimeout
	s.inactive[pkt.Username] = now
	s.inactiveMu.Unlock()

	if !quiet {
		slog.Info("packet from unknown user", "user", pkt.Username, "kind", pkt.Kind, "from", addr)
	}
	s.sendNotice(protocol.KindLogout, "not logged in, please log in again", addr)
}

// forgetInactive clears a username from the rejection log suppressor.
func (s *Server) forgetInactive(username string) {
	s.inactiveMu.Lock()
	delete(s.inactive, username)
	s.inactiveMu.Unlock()
}

// terminateSession is the single cleanup path for every way a session
// ends: client LOGOUT, reaper eviction and shutdown. It removes the
// session, cascades channel-membership removal and optionally sends a
// forced-logout notice with the reason to the last known address.
func (s *Server) terminateSession(username, reason string, notify bool) {
	sess := s.sessions.Logout(username)
	if sess == nil {
		return
	}
	deleted := s.channels.RemoveEverywhere(username)
	s.metrics.ChannelsDeleted.Add(int64(deleted))

	if notify && sess.Addr != nil {
		s.sendNotice(protocol.KindLogout, reason, sess.Addr)
	}
	slog.Info("session ended", "user", username, "reason", reason)
}

// send writes one datagram, best-effort. Send failures are logged and
// never propagate.
func (s *Server) send(data []byte, addr *net.UDPAddr) {
	if s.out == nil {
		return
	}
	n, err := s.out.WriteToUDP(data, addr)
	if err != nil {
		slog.Debug("send failed", "to", addr, "err", err)
		return
	}
	s.metrics.PacketsOut.Add(1)
	s.metrics.BytesOut.Add(int64(n))
}

func (s *Server) sendNotice(kind protocol.Kind, text string, addr *net.UDPAddr) {
	s.send(protocol.MarshalNotice(kind, text), addr)
}
