package photon

import (
	"encoding/binary"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/protocol16"
)

// Builders for synthetic datagrams. The live pipeline never encodes;
// these exist for tests and for replaying captured message bodies.

// BuildMessageBody frames a request/response/event body around an
// encoded parameter table.
func BuildMessageBody(kind core.MessageKind, code uint8, params protocol16.ParamMap) []byte {
	w := protocol16.NewWriter()
	w.U8(Signature)
	w.U8(byte(kind))
	w.U8(code)
	if kind == core.KindResponse {
		w.I16(0)
		w.U8(byte(protocol16.TypeNil))
	}
	if err := w.ParamMap(params); err != nil {
		panic(err)
	}
	return w.Bytes()
}

// BuildDatagram wraps commands into a single UDP payload.
func BuildDatagram(peerID uint16, commands ...[]byte) []byte {
	out := make([]byte, datagramHeaderLen)
	binary.BigEndian.PutUint16(out[0:2], peerID)
	out[2] = 0
	out[3] = byte(len(commands))
	for _, c := range commands {
		out = append(out, c...)
	}
	return out
}

// BuildCommand encodes one command with its 12-byte header.
func BuildCommand(typ CommandType, channel uint8, seq int32, body []byte) []byte {
	out := make([]byte, commandHeaderLen+len(body))
	out[0] = byte(typ)
	out[1] = channel
	binary.BigEndian.PutUint32(out[4:8], uint32(commandHeaderLen+len(body)))
	binary.BigEndian.PutUint32(out[8:12], uint32(seq))
	copy(out[commandHeaderLen:], body)
	return out
}

// BuildFragmentCommands splits a message body into fragment commands of
// at most chunk bytes each.
func BuildFragmentCommands(channel uint8, seq int32, body []byte, chunk int) [][]byte {
	if chunk <= 0 {
		chunk = 1024
	}
	count := (len(body) + chunk - 1) / chunk
	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * chunk
		end := start + chunk
		if end > len(body) {
			end = len(body)
		}
		frag := make([]byte, fragmentHeaderLen+end-start)
		binary.BigEndian.PutUint32(frag[0:4], uint32(seq))
		binary.BigEndian.PutUint32(frag[4:8], uint32(count))
		binary.BigEndian.PutUint32(frag[8:12], uint32(i))
		binary.BigEndian.PutUint32(frag[12:16], uint32(len(body)))
		binary.BigEndian.PutUint32(frag[16:20], uint32(start))
		copy(frag[fragmentHeaderLen:], body[start:end])
		out = append(out, BuildCommand(CommandReliableFragment, channel, seq, frag))
	}
	return out
}
