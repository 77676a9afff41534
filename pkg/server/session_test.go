package server

import (
	"net"
	"testing"
	"time"
)

func testAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestSessionLoginAndLookup(t *testing.T) {
	reg := NewSessionRegistry()
	now := time.Now()

	if err := reg.Login("alice", testAddr(4001), now); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}

	sess, ok := reg.Lookup("alice")
	if !ok {
		t.Fatalf("Lookup: session missing after login")
	}
	if sess.Addr.Port != 4001 || !sess.LastActive.Equal(now) {
		t.Fatalf("Lookup: unexpected session %+v", sess)
	}
	if reg.Count() != 1 {
		t.Fatalf("Count: want 1 got %d", reg.Count())
	}
}

func TestSessionDuplicateLoginLeavesFirstUntouched(t *testing.T) {
	reg := NewSessionRegistry()
	first := time.Now()

	if err := reg.Login("alice", testAddr(4001), first); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}
	if err := reg.Login("alice", testAddr(9999), first.Add(time.Minute)); err != ErrAlreadyLoggedIn {
		t.Fatalf("second Login: want ErrAlreadyLoggedIn got %v", err)
	}

	sess, _ := reg.Lookup("alice")
	if sess.Addr.Port != 4001 {
		t.Errorf("address changed by rejected login: %v", sess.Addr)
	}
	if !sess.LastActive.Equal(first) {
		t.Errorf("timestamp changed by rejected login: %v", sess.LastActive)
	}
}

func TestSessionTouch(t *testing.T) {
	reg := NewSessionRegistry()
	start := time.Now()

	if reg.Touch("ghost", testAddr(1), start) {
		t.Fatalf("Touch: expected false for unknown username")
	}

	if err := reg.Login("alice", testAddr(4001), start); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}
	later := start.Add(30 * time.Second)
	if !reg.Touch("alice", testAddr(4002), later) {
		t.Fatalf("Touch: expected true for logged-in username")
	}

	sess, _ := reg.Lookup("alice")
	if sess.Addr.Port != 4002 {
		t.Errorf("Touch did not update address: %v", sess.Addr)
	}
	if !sess.LastActive.Equal(later) {
		t.Errorf("Touch did not update timestamp: %v", sess.LastActive)
	}
}

func TestSessionLogout(t *testing.T) {
	reg := NewSessionRegistry()
	if err := reg.Login("alice", testAddr(4001), time.Now()); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}

	sess := reg.Logout("alice")
	if sess == nil || sess.Username != "alice" {
		t.Fatalf("Logout: want removed session, got %+v", sess)
	}
	if _, ok := reg.Lookup("alice"); ok {
		t.Fatalf("Lookup: session still present after logout")
	}
	if reg.Logout("alice") != nil {
		t.Fatalf("second Logout: want nil")
	}
}

func TestSessionAddrOf(t *testing.T) {
	reg := NewSessionRegistry()
	if reg.AddrOf("ghost") != nil {
		t.Fatalf("AddrOf: want nil for unknown username")
	}
	if err := reg.Login("alice", testAddr(4001), time.Now()); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}
	if addr := reg.AddrOf("alice"); addr == nil || addr.Port != 4001 {
		t.Fatalf("AddrOf: got %v", addr)
	}
}

func TestSessionExpired(t *testing.T) {
	reg := NewSessionRegistry()
	start := time.Now()
	timeout := 120 * time.Second

	if err := reg.Login("stale", testAddr(4001), start); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}
	if err := reg.Login("fresh", testAddr(4002), start.Add(100*time.Second)); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}

	now := start.Add(121 * time.Second)
	var got []string
	for name := range reg.Expired(now, timeout) {
		got = append(got, name)
	}
	if len(got) != 1 || got[0] != "stale" {
		t.Fatalf("Expired: want [stale] got %v", got)
	}

	// The sequence is restartable and unaffected by evictions made
	// while ranging over it.
	seq := reg.Expired(now, timeout)
	for name := range seq {
		reg.Logout(name)
	}
	count := 0
	for range seq {
		count++
	}
	if count != 1 {
		t.Fatalf("Expired restart: want 1 got %d", count)
	}
}
