// Package protocol defines the partyline datagram packet format.
//
// Every packet, request or reply, starts with a 4-byte big-endian kind
// tag. Structured kinds follow with fixed-width, space-padded ASCII
// fields (32 bytes for usernames and channel names, 64 bytes for
// message text). Free-text replies (channel listings, member lists,
// error notices, the shutdown notice) carry the raw text directly
// after the tag.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the packet type carried in the 4-byte tag.
type Kind uint32

const (
	KindLogin Kind = iota
	KindLogout
	KindList
	KindJoin
	KindSay
	KindWho
	KindLeave
	KindKeepAlive
	KindShutdown
)

const (
	// TagSize is the byte size of the kind tag prefix.
	TagSize = 4

	// NameSize is the fixed width of username and channel fields.
	NameSize = 32

	// TextSize is the fixed width of the SAY message text field.
	TextSize = 64

	// MaxDatagram is the largest datagram either side will send.
	MaxDatagram = 1024
)

// ErrTooShort is returned when a buffer is shorter than the minimum
// length required for its declared kind.
var ErrTooShort = errors.New("protocol: packet too short")

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLogin:
		return "LOGIN"
	case KindLogout:
		return "LOGOUT"
	case KindList:
		return "LIST"
	case KindJoin:
		return "JOIN"
	case KindSay:
		return "SAY"
	case KindWho:
		return "WHO"
	case KindLeave:
		return "LEAVE"
	case KindKeepAlive:
		return "KEEP_ALIVE"
	case KindShutdown:
		return "SHUTDOWN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(k))
	}
}

// Known reports whether k is a defined wire kind.
func (k Kind) Known() bool {
	return k <= KindShutdown
}

// Packet is the decoded form of one datagram. Which fields are
// meaningful depends on Kind; unused fields are empty.
type Packet struct {
	Kind     Kind
	Username string // LOGIN, LOGOUT, JOIN, SAY, LEAVE, KEEP_ALIVE
	Channel  string // JOIN, SAY, WHO, LEAVE
	Text     string // SAY; also free text for unknown kinds
}

// pad returns s space-padded to width. Longer values are silently
// truncated; the fixed-width layout makes this lossy on purpose.
func pad(s string, width int) []byte {
	b := make([]byte, width)
	n := copy(b, s)
	for i := n; i < width; i++ {
		b[i] = ' '
	}
	return b
}

// strip removes the trailing space padding from a fixed-width field.
func strip(b []byte) string {
	return strings.TrimRight(string(b), " ")
}

// Marshal serializes the packet into its fixed wire layout.
func (p *Packet) Marshal() []byte {
	buf := make([]byte, TagSize, MaxDatagram)
	binary.BigEndian.PutUint32(buf, uint32(p.Kind))

	switch p.Kind {
	case KindLogin, KindLogout, KindKeepAlive:
		buf = append(buf, pad(p.Username, NameSize)...)
	case KindJoin, KindLeave:
		buf = append(buf, pad(p.Username, NameSize)...)
		buf = append(buf, pad(p.Channel, NameSize)...)
	case KindSay:
		buf = append(buf, pad(p.Channel, NameSize)...)
		buf = append(buf, pad(p.Username, NameSize)...)
		buf = append(buf, pad(p.Text, TextSize)...)
	case KindWho:
		buf = append(buf, pad(p.Channel, NameSize)...)
	default:
		// LIST and SHUTDOWN requests are tag-only; notices and
		// unknown kinds carry free text.
		buf = append(buf, p.Text...)
	}
	return buf
}

// Unmarshal parses one datagram. It fails with ErrTooShort when data
// is shorter than the minimum length for its declared kind. Unknown
// kinds decode successfully with the trailing bytes in Text so the
// caller can decide to ignore them.
func Unmarshal(data []byte) (*Packet, error) {
	if len(data) < TagSize {
		return nil, ErrTooShort
	}
	p := &Packet{Kind: Kind(binary.BigEndian.Uint32(data[:TagSize]))}
	rest := data[TagSize:]

	switch p.Kind {
	case KindLogin, KindLogout, KindKeepAlive:
		if len(rest) < NameSize {
			return nil, ErrTooShort
		}
		p.Username = strip(rest[:NameSize])
	case KindJoin, KindLeave:
		if len(rest) < 2*NameSize {
			return nil, ErrTooShort
		}
		p.Username = strip(rest[:NameSize])
		p.Channel = strip(rest[NameSize : 2*NameSize])
	case KindSay:
		if len(rest) < 2*NameSize+TextSize {
			return nil, ErrTooShort
		}
		p.Channel = strip(rest[:NameSize])
		p.Username = strip(rest[NameSize : 2*NameSize])
		p.Text = strip(rest[2*NameSize : 2*NameSize+TextSize])
	case KindWho:
		if len(rest) < NameSize {
			return nil, ErrTooShort
		}
		p.Channel = strip(rest[:NameSize])
	default:
		// LIST and SHUTDOWN have no fixed request fields; unknown
		// kinds keep their payload for diagnostics.
		p.Text = string(rest)
	}
	return p, nil
}

// UnmarshalNotice splits a free-text reply into its kind tag and text.
// Clients use this for every inbound packet except SAY broadcasts,
// which carry the fixed layout and go through Unmarshal.
func UnmarshalNotice(data []byte) (Kind, string, error) {
	if len(data) < TagSize {
		return 0, "", ErrTooShort
	}
	kind := Kind(binary.BigEndian.Uint32(data[:TagSize]))
	return kind, string(data[TagSize:]), nil
}

// MarshalNotice builds a free-text reply under the given kind tag.
// Used for welcome acknowledgments, channel listings, WHO replies,
// error notices and the shutdown broadcast.
func MarshalNotice(kind Kind, text string) []byte {
	if TagSize+len(text) > MaxDatagram {
		text = text[:MaxDatagram-TagSize]
	}
	buf := make([]byte, TagSize, TagSize+len(text))
	binary.BigEndian.PutUint32(buf, uint32(kind))
	return append(buf, text...)
}
