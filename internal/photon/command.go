// Package photon parses the reliable-UDP framing used by the game
// client: datagrams carrying one or more commands, reliable fragments
// that span datagrams, and the logical request/response/event messages
// reassembled from them.
package photon

import (
	"encoding/binary"
	"fmt"

	"github.com/gameobs/photometer/internal/core"
)

// CommandType identifies one unit within a datagram.
type CommandType uint8

const (
	CommandAck              CommandType = 1
	CommandConnect          CommandType = 2
	CommandVerifyConnect    CommandType = 3
	CommandDisconnect       CommandType = 4
	CommandPing             CommandType = 5
	CommandUnreliable       CommandType = 6
	CommandReliable         CommandType = 7
	CommandReliableFragment CommandType = 8
)

const (
	datagramHeaderLen = 4
	commandHeaderLen  = 12
	fragmentHeaderLen = 20
)

// Command is one parsed command. Body is a sub-slice of the datagram
// payload and must not be retained past the current packet.
type Command struct {
	Type        CommandType
	ChannelID   uint8
	Flags       uint8
	ReliableSeq int32
	Body        []byte
}

// Datagram is one parsed UDP payload.
type Datagram struct {
	PeerID     uint16
	CRCEnabled bool
	Commands   []Command
}

// ParseDatagram splits a UDP payload into its commands. A malformed
// command header stops parsing: the commands before it are returned
// together with the error. Commands of unknown type
// with a self-consistent length are skipped and reported through the
// skipped counter so the remainder of the datagram still parses.
func ParseDatagram(payload []byte) (Datagram, int, error) {
	if len(payload) < datagramHeaderLen {
		return Datagram{}, 0, core.ErrPacketTooShort
	}
	d := Datagram{
		PeerID:     binary.BigEndian.Uint16(payload[0:2]),
		CRCEnabled: payload[2] != 0,
	}
	count := int(payload[3])
	off := datagramHeaderLen
	skipped := 0
	for i := 0; i < count; i++ {
		if len(payload)-off < commandHeaderLen {
			return d, skipped, fmt.Errorf("command %d: %w", i, core.ErrPacketTooShort)
		}
		hdr := payload[off:]
		length := int(int32(binary.BigEndian.Uint32(hdr[4:8])))
		if length < commandHeaderLen || off+length > len(payload) {
			return d, skipped, fmt.Errorf("command %d: length %d: %w", i, length, core.ErrMalformedPacket)
		}
		cmd := Command{
			Type:        CommandType(hdr[0]),
			ChannelID:   hdr[1],
			Flags:       hdr[2],
			ReliableSeq: int32(binary.BigEndian.Uint32(hdr[8:12])),
			Body:        payload[off+commandHeaderLen : off+length],
		}
		off += length
		switch cmd.Type {
		case CommandUnreliable, CommandReliable, CommandReliableFragment:
			d.Commands = append(d.Commands, cmd)
		default:
			skipped++
		}
	}
	return d, skipped, nil
}

// Fragment is the header of a ReliableFragment command body.
type Fragment struct {
	Sequence      int32
	FragmentCount int32
	FragmentNum   int32
	TotalLength   int32
	Offset        int32
	Data          []byte
}

// ParseFragment splits a ReliableFragment command body.
func ParseFragment(body []byte) (Fragment, error) {
	if len(body) < fragmentHeaderLen {
		return Fragment{}, core.ErrPacketTooShort
	}
	f := Fragment{
		Sequence:      int32(binary.BigEndian.Uint32(body[0:4])),
		FragmentCount: int32(binary.BigEndian.Uint32(body[4:8])),
		FragmentNum:   int32(binary.BigEndian.Uint32(body[8:12])),
		TotalLength:   int32(binary.BigEndian.Uint32(body[12:16])),
		Offset:        int32(binary.BigEndian.Uint32(body[16:20])),
		Data:          body[fragmentHeaderLen:],
	}
	return f, nil
}
