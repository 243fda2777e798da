// Package relay turns a star of point-to-point connections into one logical
// room: the host authenticates guests, keeps the member set and fans traffic
// out, while a guest talks only to the host.
package relay

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"bloomkeepers/internal/protocol"

	"lukechampine.com/blake3"
)

var (
	ErrHostLost     = errors.New("host connection lost")
	ErrRejected     = errors.New("authentication rejected")
	ErrDial         = errors.New("connect to host")
	ErrNotConnected = errors.New("not connected")
	ErrUnknownPeer  = errors.New("unknown peer")
)

// Conn is one transport-level connection as seen by the host. The host calls
// Send from the room goroutine, so it must not block; wrap slow transports
// in an Outbound.
type Conn interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// ClientConn is the guest's single connection to the host.
type ClientConn interface {
	Send(data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (ClientConn, error)
}

// Hooks is how the host side of the relay reaches the room it serves.
type Hooks interface {
	// Joined is called once a connection authenticates, before the welcome is built.
	Joined(id, nickname string)
	// Welcome builds the handshake reply for a freshly authenticated member.
	Welcome(id, nickname string) *protocol.AuthSuccess
	// Deliver hands a routed frame to the host's own handler. For broadcasts,
	// returning false stops the frame from being forwarded to other members.
	Deliver(from string, f protocol.Frame) bool
	// Departed is called once for every authenticated member that leaves.
	Departed(id string)
}

// Deferrer runs fn on the owning loop after d.
type Deferrer interface {
	After(d time.Duration, fn func())
}

type digest [32]byte

func passwordDigest(password string) digest {
	return blake3.Sum256([]byte(password))
}

func (d digest) matches(password string) bool {
	got := passwordDigest(password)
	return subtle.ConstantTimeCompare(d[:], got[:]) == 1
}

type noopRelayMetrics struct{}

func (noopRelayMetrics) RecordAuth(bool)                 {}
func (noopRelayMetrics) RecordEviction()                 {}
func (noopRelayMetrics) RecordDropped(string)            {}
func (noopRelayMetrics) RecordRouted(protocol.Kind, int) {}
