package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{"login", Packet{Kind: KindLogin, Username: "alice"}},
		{"logout", Packet{Kind: KindLogout, Username: "alice"}},
		{"keep_alive", Packet{Kind: KindKeepAlive, Username: "bob"}},
		{"join", Packet{Kind: KindJoin, Username: "alice", Channel: "dev"}},
		{"leave", Packet{Kind: KindLeave, Username: "alice", Channel: "dev"}},
		{"say", Packet{Kind: KindSay, Channel: "dev", Username: "bob", Text: "hi"}},
		{"who", Packet{Kind: KindWho, Channel: "dev"}},
		{"list request", Packet{Kind: KindList}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.pkt.Marshal()
			got, err := Unmarshal(raw)
			if err != nil {
				t.Fatalf("Unmarshal: unexpected error: %v", err)
			}
			if *got != tt.pkt {
				t.Fatalf("round trip mismatch: want %+v got %+v", tt.pkt, *got)
			}

			// Re-encoding the decoded packet must reproduce the padded layout.
			again := got.Marshal()
			if !bytes.Equal(raw, again) {
				t.Fatalf("re-encode mismatch:\nwant %q\ngot  %q", raw, again)
			}
		})
	}
}

func TestMarshalFixedWidths(t *testing.T) {
	p := Packet{Kind: KindSay, Channel: "dev", Username: "bob", Text: "hi"}
	raw := p.Marshal()

	if len(raw) != TagSize+2*NameSize+TextSize {
		t.Fatalf("SAY length: want %d got %d", TagSize+2*NameSize+TextSize, len(raw))
	}
	if string(raw[TagSize:TagSize+3]) != "dev" {
		t.Errorf("channel field: got %q", raw[TagSize:TagSize+NameSize])
	}
	// Padding must be spaces, not NULs.
	for i := TagSize + 3; i < TagSize+NameSize; i++ {
		if raw[i] != ' ' {
			t.Fatalf("padding byte at %d: got %q", i, raw[i])
		}
	}
}

func TestMarshalTruncatesLongFields(t *testing.T) {
	long := strings.Repeat("x", NameSize+10)
	p := Packet{Kind: KindLogin, Username: long}
	raw := p.Marshal()
	if len(raw) != TagSize+NameSize {
		t.Fatalf("LOGIN length: want %d got %d", TagSize+NameSize, len(raw))
	}

	got, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if got.Username != long[:NameSize] {
		t.Fatalf("truncation: want %q got %q", long[:NameSize], got.Username)
	}
}

func TestUnmarshalTooShort(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"partial tag", []byte{0, 0, 1}},
		{"login missing username", (&Packet{Kind: KindLogin, Username: "alice"}).Marshal()[:20]},
		{"join missing channel", (&Packet{Kind: KindJoin, Username: "alice", Channel: "dev"}).Marshal()[:40]},
		{"say missing text", (&Packet{Kind: KindSay, Channel: "dev", Username: "bob", Text: "hi"}).Marshal()[:100]},
		{"who missing channel", []byte{0, 0, 0, 5, 'd'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal(tt.data); err != ErrTooShort {
				t.Errorf("Unmarshal(%q) error = %v, want ErrTooShort", tt.data, err)
			}
		})
	}
}

func TestUnmarshalUnknownKind(t *testing.T) {
	raw := MarshalNotice(Kind(42), "mystery payload")
	p, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if p.Kind.Known() {
		t.Fatalf("Kind(42).Known() = true, want false")
	}
	if p.Text != "mystery payload" {
		t.Fatalf("unknown kind text: got %q", p.Text)
	}
}

func TestNoticeRoundTrip(t *testing.T) {
	raw := MarshalNotice(KindWho, "users on dev: alice, bob")
	kind, text, err := UnmarshalNotice(raw)
	if err != nil {
		t.Fatalf("UnmarshalNotice: unexpected error: %v", err)
	}
	if kind != KindWho || text != "users on dev: alice, bob" {
		t.Fatalf("notice mismatch: kind=%v text=%q", kind, text)
	}
}

func TestNoticeClampsToMaxDatagram(t *testing.T) {
	raw := MarshalNotice(KindList, strings.Repeat("c", 2*MaxDatagram))
	if len(raw) != MaxDatagram {
		t.Fatalf("notice length: want %d got %d", MaxDatagram, len(raw))
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindLogin, "LOGIN"},
		{KindSay, "SAY"},
		{KindKeepAlive, "KEEP_ALIVE"},
		{KindShutdown, "SHUTDOWN"},
		{Kind(99), "UNKNOWN(99)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
