// Package model defines the core domain types for partyline.
package model

import (
	"errors"
	"net"
	"time"

	"github.com/mwren/partyline/pkg/protocol"
)

var (
	ErrNameEmpty   = errors.New("name must not be empty")
	ErrNameTooLong = errors.New("name too long")
)

// MaxNameLength is the longest username or channel name the wire
// format can carry without truncation.
const MaxNameLength = protocol.NameSize

// Session represents one logged-in user (in-memory only).
type Session struct {
	Username   string
	Addr       *net.UDPAddr // last observed transport endpoint
	LastActive time.Time    // time of the last valid inbound packet
}

// ValidateName checks a username or channel name before it enters the
// registries. Wire-decoded names always fit the 32-byte field; the
// length check guards names coming from config files and direct API
// use. The codec itself truncates over-long fields at encode time and
// distinct long names can collide after truncation.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
