package photon

import (
	"errors"
	"testing"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/protocol16"
)

func TestParseDatagramMultipleCommands(t *testing.T) {
	evt := BuildMessageBody(core.KindEvent, 6, protocol16.ParamMap{0: int32(7)})
	req := BuildMessageBody(core.KindRequest, 1, protocol16.ParamMap{5: int32(9)})
	payload := BuildDatagram(42,
		BuildCommand(CommandReliable, 1, 10, evt),
		BuildCommand(CommandUnreliable, 0, 0, req),
	)

	d, skipped, err := ParseDatagram(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.PeerID != 42 {
		t.Fatalf("peer = %d, want 42", d.PeerID)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if len(d.Commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(d.Commands))
	}
	if d.Commands[0].Type != CommandReliable || d.Commands[1].Type != CommandUnreliable {
		t.Fatalf("unexpected command types %v %v", d.Commands[0].Type, d.Commands[1].Type)
	}
}

func TestParseDatagramSkipsControlCommands(t *testing.T) {
	ping := BuildCommand(CommandPing, 0, 0, nil)
	evt := BuildCommand(CommandReliable, 1, 3, BuildMessageBody(core.KindEvent, 6, nil))
	payload := BuildDatagram(1, ping, evt)

	d, skipped, err := ParseDatagram(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
	if len(d.Commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(d.Commands))
	}
}

func TestParseDatagramTruncatedCommand(t *testing.T) {
	evt := BuildCommand(CommandReliable, 1, 3, BuildMessageBody(core.KindEvent, 6, nil))
	payload := BuildDatagram(1, evt)
	if _, _, err := ParseDatagram(payload[:len(payload)-4]); err == nil {
		t.Fatal("expected error for truncated command")
	}
}

func TestClassifyEvent(t *testing.T) {
	params := protocol16.ParamMap{0: int32(7), 2: float64(-100), 6: int32(7)}
	body := BuildMessageBody(core.KindEvent, 6, params)

	msg, err := Classify(1, true, 17, body)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if msg.Kind != core.KindEvent || msg.Code != 6 {
		t.Fatalf("kind=%v code=%d", msg.Kind, msg.Code)
	}
	if msg.Seq != 17 || !msg.Reliable || msg.Channel != 1 {
		t.Fatalf("framing fields lost: %+v", msg)
	}
	if v, _ := protocol16.FloatValue(msg.Params[2]); v != -100 {
		t.Fatalf("param 2 = %v", msg.Params[2])
	}
}

func TestClassifyResponseCarriesReturnCode(t *testing.T) {
	w := protocol16.NewWriter()
	w.U8(Signature)
	w.U8(byte(core.KindResponse))
	w.U8(2)
	w.I16(-3)
	w.U8(byte(protocol16.TypeString))
	w.I16(4)
	w.Raw([]byte("oops"))
	w.I16(0)

	msg, err := Classify(0, true, 1, w.Bytes())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if msg.Kind != core.KindResponse || msg.Code != 2 {
		t.Fatalf("kind=%v code=%d", msg.Kind, msg.Code)
	}
	if msg.ReturnCode != -3 || msg.DebugText != "oops" {
		t.Fatalf("rc=%d debug=%q", msg.ReturnCode, msg.DebugText)
	}
}

func TestClassifyBadSignature(t *testing.T) {
	body := BuildMessageBody(core.KindEvent, 6, nil)
	body[0] = 0x00
	if _, err := Classify(0, true, 1, body); !errors.Is(err, core.ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestClassifyUnknownMessageType(t *testing.T) {
	body := []byte{Signature, 9, 1}
	if _, err := Classify(0, true, 1, body); !errors.Is(err, core.ErrMalformedHeader) {
		t.Fatalf("err = %v, want ErrMalformedHeader", err)
	}
}

func TestClassifyUnknownTagKeepsPartialParams(t *testing.T) {
	w := protocol16.NewWriter()
	w.U8(Signature)
	w.U8(byte(core.KindEvent))
	w.U8(6)
	w.I16(2)
	w.U8(0)
	w.U8(byte(protocol16.TypeI32))
	w.I32(7)
	w.U8(1)
	w.U8(0xEE)

	msg, err := Classify(0, true, 1, w.Bytes())
	var unknown *protocol16.UnknownTagError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownTagError", err)
	}
	if msg.Params[0] != int32(7) {
		t.Fatalf("partial params lost: %#v", msg.Params)
	}
}
