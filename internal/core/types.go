// Package core defines core data structures with zero external dependencies.
package core

import (
	"fmt"
	"net/netip"
	"time"
)

// Endpoint identifies one side of a UDP conversation.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Addr, e.Port)
}

// IsValid reports whether the endpoint carries a usable address.
func (e Endpoint) IsValid() bool {
	return e.Addr.IsValid()
}

// Flow identifies one direction of one UDP conversation.
type Flow struct {
	Src Endpoint
	Dst Endpoint
}

// RawPacket is one UDP payload handed to the pipeline by a packet source.
type RawPacket struct {
	Timestamp time.Time
	Src       Endpoint
	Dst       Endpoint
	Payload   []byte
}

// Flow returns the directed flow this packet belongs to.
func (p RawPacket) Flow() Flow {
	return Flow{Src: p.Src, Dst: p.Dst}
}

// ActorID is the engine entity id. Not globally unique across zones.
type ActorID uint32

// MessageKind distinguishes the three logical message kinds above the
// transport layer.
type MessageKind uint8

const (
	KindRequest  MessageKind = 2
	KindResponse MessageKind = 3
	KindEvent    MessageKind = 4
)

func (k MessageKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}
