package photon

import (
	"fmt"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/protocol16"
)

// Signature is the first byte of every logical message body in the
// observed dialect.
const Signature = 0xF3

// LogicalMessage is one complete request/response/event above the
// transport layer. Params must not outlive the decode pass.
type LogicalMessage struct {
	Channel    uint8
	Reliable   bool
	Seq        uint16
	Kind       core.MessageKind
	Code       uint8
	ReturnCode int16
	DebugText  string
	Params     protocol16.ParamMap
}

// Classify strips the message framing from a complete command body and
// decodes the payload dictionary. An *protocol16.UnknownTagError comes
// back together with the partially decoded message; every other error
// means the message is unusable.
func Classify(channel uint8, reliable bool, seq uint16, body []byte) (LogicalMessage, error) {
	msg := LogicalMessage{Channel: channel, Reliable: reliable, Seq: seq}
	if len(body) < 3 {
		return msg, core.ErrMalformedHeader
	}
	if body[0] != Signature {
		return msg, fmt.Errorf("signature %#x: %w", body[0], core.ErrBadSignature)
	}
	kind := core.MessageKind(body[1])
	r := protocol16.NewReader(body[2:])

	code, err := r.U8()
	if err != nil {
		return msg, core.ErrMalformedHeader
	}
	msg.Kind = kind
	msg.Code = code

	switch kind {
	case core.KindRequest, core.KindEvent:
	case core.KindResponse:
		rc, err := r.I16()
		if err != nil {
			return msg, core.ErrMalformedHeader
		}
		msg.ReturnCode = rc
		debug, err := protocol16.DecodeValue(r)
		if err != nil {
			return msg, core.ErrMalformedHeader
		}
		if s, ok := debug.(string); ok {
			msg.DebugText = s
		}
	default:
		return msg, fmt.Errorf("message type %d: %w", body[1], core.ErrMalformedHeader)
	}

	params, err := protocol16.DecodeParamMap(r)
	msg.Params = params
	return msg, err
}
