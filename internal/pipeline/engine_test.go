package pipeline

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/event"
	"github.com/gameobs/photometer/internal/meter"
	"github.com/gameobs/photometer/internal/photon"
	"github.com/gameobs/photometer/internal/protocol16"
	"github.com/gameobs/photometer/internal/roster"
)

var (
	serverA = core.Endpoint{Addr: netip.MustParseAddr("5.188.125.1"), Port: 5056}
	serverB = core.Endpoint{Addr: netip.MustParseAddr("5.188.125.2"), Port: 5056}
	client  = core.Endpoint{Addr: netip.MustParseAddr("192.168.1.10"), Port: 54000}
)

var base = time.Unix(1700000000, 0)

func ts(s float64) time.Time {
	return base.Add(time.Duration(s * float64(time.Second)))
}

// sliceSource replays a fixed packet list then reports end of stream.
type sliceSource struct {
	packets []core.RawPacket
	i       int
}

func (s *sliceSource) Next() (core.RawPacket, error) {
	if s.i >= len(s.packets) {
		return core.RawPacket{}, core.ErrSourceClosed
	}
	p := s.packets[s.i]
	s.i++
	return p, nil
}

func (s *sliceSource) Close() error { return nil }

// chanSource blocks on a channel so tests can interleave control calls
// with packet delivery.
type chanSource struct{ ch chan core.RawPacket }

func (s *chanSource) Next() (core.RawPacket, error) {
	p, ok := <-s.ch
	if !ok {
		return core.RawPacket{}, core.ErrSourceClosed
	}
	return p, nil
}

func (s *chanSource) Close() error { return nil }

func packet(at time.Time, from core.Endpoint, seq int32, body []byte) core.RawPacket {
	cmd := photon.BuildCommand(photon.CommandReliable, 1, seq, body)
	return core.RawPacket{
		Timestamp: at,
		Src:       from,
		Dst:       client,
		Payload:   photon.BuildDatagram(7, cmd),
	}
}

func eventPacket(at time.Time, from core.Endpoint, seq int32, code uint8, params protocol16.ParamMap) core.RawPacket {
	return packet(at, from, seq, photon.BuildMessageBody(core.KindEvent, code, params))
}

func healthPacket(at time.Time, seq int32, actor uint32, delta float64) core.RawPacket {
	return eventPacket(at, serverA, seq, 6, protocol16.ParamMap{
		0: int32(actor),
		2: delta,
		6: int32(actor),
	})
}

func run(t *testing.T, cfg Config, packets []core.RawPacket) *meter.Snapshot {
	t.Helper()
	eng := New(cfg, Deps{})
	require.NoError(t, eng.Run(context.Background(), &sliceSource{packets: packets}))
	return eng.Snapshot()
}

func selfConfig() Config {
	return Config{Roster: roster.Config{SelfName: "Alice", SelfID: 1}}
}

func TestRunAggregatesSelfDamage(t *testing.T) {
	snap := run(t, selfConfig(), []core.RawPacket{
		healthPacket(ts(0), 1, 1, -120),
		healthPacket(ts(1), 2, 1, -80),
		eventPacket(ts(2), serverA, 3, 71, protocol16.ParamMap{1: float64(500)}),
	})

	require.Len(t, snap.Actors, 1)
	assert.Equal(t, "Alice", snap.Actors[0].Name)
	assert.Equal(t, uint64(200), snap.Actors[0].Damage)
	assert.Equal(t, uint64(500), snap.Fame)
	assert.Equal(t, "battle", snap.Mode)
	assert.Equal(t, uint64(3), snap.Counters.Packets)
	assert.Equal(t, uint64(0), snap.Counters.Malformed)
}

func TestRunDefersUnknownActorUntilJoin(t *testing.T) {
	snap := run(t, selfConfig(), []core.RawPacket{
		eventPacket(ts(0), serverA, 1, 225, protocol16.ParamMap{5: []string{"Alice", "Bob"}}),
		healthPacket(ts(1), 2, 9, -60),
		healthPacket(ts(2), 3, 9, -40),
		eventPacket(ts(3), serverA, 4, 27, protocol16.ParamMap{
			0: int32(9), 1: "Bob", 40: []int32{101, 5},
		}),
	})

	require.Len(t, snap.Actors, 1)
	assert.Equal(t, "Bob", snap.Actors[0].Name)
	assert.Equal(t, uint64(100), snap.Actors[0].Damage)
}

func TestRunIgnoresNonPartyActors(t *testing.T) {
	snap := run(t, selfConfig(), []core.RawPacket{
		healthPacket(ts(0), 1, 1, -50),
		eventPacket(ts(1), serverA, 2, 27, protocol16.ParamMap{0: int32(9), 1: "Mallory"}),
		healthPacket(ts(2), 3, 9, -9999),
	})

	require.Len(t, snap.Actors, 1)
	assert.Equal(t, "Alice", snap.Actors[0].Name)
	assert.Equal(t, uint64(50), snap.Actors[0].Damage)
}

func TestRunSelfIdentifiedFromResponse(t *testing.T) {
	body := photon.BuildMessageBody(core.KindResponse, 2, protocol16.ParamMap{
		0: int32(77), 1: "Carol",
	})
	snap := run(t, Config{}, []core.RawPacket{
		healthPacket(ts(0), 1, 77, -30),
		packet(ts(1), serverA, 2, body),
	})

	require.Len(t, snap.Actors, 1)
	assert.Equal(t, "Carol", snap.Actors[0].Name)
	assert.Equal(t, uint64(30), snap.Actors[0].Damage)
}

func TestRunReassemblesFragmentedEvent(t *testing.T) {
	body := photon.BuildMessageBody(core.KindEvent, 6, protocol16.ParamMap{
		0: int32(1), 2: float64(-75), 6: int32(1),
	})
	frags := photon.BuildFragmentCommands(1, 50, body, 6)
	require.Greater(t, len(frags), 1)

	var packets []core.RawPacket
	for i, f := range frags {
		packets = append(packets, core.RawPacket{
			Timestamp: ts(float64(i) * 0.01),
			Src:       serverA,
			Dst:       client,
			Payload:   photon.BuildDatagram(7, f),
		})
	}
	snap := run(t, selfConfig(), packets)

	require.Len(t, snap.Actors, 1)
	assert.Equal(t, uint64(75), snap.Actors[0].Damage)
}

func TestRunZoneChangeArchivesSession(t *testing.T) {
	cfg := selfConfig()
	cfg.Meter = meter.Config{Mode: meter.ModeZone}
	snap := run(t, cfg, []core.RawPacket{
		healthPacket(ts(0), 1, 1, -100),
		{
			Timestamp: ts(5),
			Src:       serverB,
			Dst:       client,
			Payload: photon.BuildDatagram(7, photon.BuildCommand(
				photon.CommandReliable, 1, 2,
				photon.BuildMessageBody(core.KindEvent, 6, protocol16.ParamMap{
					0: int32(1), 2: float64(-40), 6: int32(1),
				}))),
		},
	})

	assert.Equal(t, serverB.String(), snap.Zone)
	require.Len(t, snap.Actors, 1)
	assert.Equal(t, uint64(40), snap.Actors[0].Damage)
	require.Len(t, snap.History, 1)
	require.Len(t, snap.History[0].Actors, 1)
	assert.Equal(t, uint64(100), snap.History[0].Actors[0].Damage)
}

func TestRunZoneChangeClearsIdentityMap(t *testing.T) {
	snap := run(t, selfConfig(), []core.RawPacket{
		eventPacket(ts(0), serverA, 1, 225, protocol16.ParamMap{5: []string{"Alice", "Bob"}}),
		eventPacket(ts(1), serverA, 2, 27, protocol16.ParamMap{0: int32(9), 1: "Bob"}),
		healthPacket(ts(2), 3, 9, -25),
		// New map: actor id 9 is up for grabs again.
		eventPacket(ts(3), serverB, 4, 6, protocol16.ParamMap{
			0: int32(9), 2: float64(-500), 6: int32(9),
		}),
	})

	require.Len(t, snap.Actors, 1)
	assert.Equal(t, "Bob", snap.Actors[0].Name)
	assert.Equal(t, uint64(25), snap.Actors[0].Damage)
}

func TestRunCountsMalformedPayloads(t *testing.T) {
	snap := run(t, selfConfig(), []core.RawPacket{
		{Timestamp: ts(0), Src: serverA, Dst: client, Payload: []byte{0x01}},
		healthPacket(ts(1), 1, 1, -10),
	})

	assert.Equal(t, uint64(2), snap.Counters.Packets)
	assert.Equal(t, uint64(1), snap.Counters.Malformed)
	require.Len(t, snap.Actors, 1)
}

func TestRunSkipsUnknownCommandTypes(t *testing.T) {
	ack := photon.BuildCommand(photon.CommandAck, 0, 0, make([]byte, 8))
	health := photon.BuildCommand(photon.CommandReliable, 1, 1,
		photon.BuildMessageBody(core.KindEvent, 6, protocol16.ParamMap{
			0: int32(1), 2: float64(-10), 6: int32(1),
		}))
	snap := run(t, selfConfig(), []core.RawPacket{{
		Timestamp: ts(0),
		Src:       serverA,
		Dst:       client,
		Payload:   photon.BuildDatagram(7, ack, health),
	}})

	assert.Equal(t, uint64(1), snap.Counters.UnknownCommands)
	require.Len(t, snap.Actors, 1)
	assert.Equal(t, uint64(10), snap.Actors[0].Damage)
}

func TestRunCountsUnknownEvents(t *testing.T) {
	snap := run(t, selfConfig(), []core.RawPacket{
		eventPacket(ts(0), serverA, 1, 250, protocol16.ParamMap{0: int32(1)}),
	})

	assert.Equal(t, uint64(1), snap.Counters.UnknownEvents)
	assert.Empty(t, snap.Actors)
}

func TestRunCombatStateGracePeriod(t *testing.T) {
	combat := func(at time.Time, seq int32, in bool) core.RawPacket {
		return eventPacket(at, serverA, seq, 18, protocol16.ParamMap{
			0: int32(1), 1: in,
		})
	}
	snap := run(t, selfConfig(), []core.RawPacket{
		combat(ts(0), 1, true),
		healthPacket(ts(1), 2, 1, -100),
		combat(ts(2), 3, false),
		// Within the quarter-second grace window.
		healthPacket(ts(2.2), 4, 1, -40),
		// Well past it: opens a fresh session.
		healthPacket(ts(10), 5, 1, -5),
	})

	require.Len(t, snap.Actors, 1)
	assert.Equal(t, uint64(5), snap.Actors[0].Damage)
	require.Len(t, snap.History, 1)
	assert.Equal(t, uint64(140), snap.History[0].Actors[0].Damage)
}

func TestControlModeSwitchWhileRunning(t *testing.T) {
	src := &chanSource{ch: make(chan core.RawPacket)}
	eng := New(selfConfig(), Deps{})

	done := make(chan error, 1)
	go func() { done <- eng.Run(context.Background(), src) }()

	eng.SetMode(meter.ModeManual)
	require.Eventually(t, func() bool {
		return eng.Snapshot().Mode == "manual"
	}, time.Second, 5*time.Millisecond)

	close(src.ch)
	require.NoError(t, <-done)
}

func TestRunManualModeDiscardsWithoutSession(t *testing.T) {
	cfg := selfConfig()
	cfg.Meter = meter.Config{Mode: meter.ModeManual}
	snap := run(t, cfg, []core.RawPacket{
		healthPacket(ts(0), 1, 1, -100),
	})

	assert.Empty(t, snap.Actors)
	assert.Equal(t, "manual", snap.Mode)
}

func TestRunContextCancelStopsCapture(t *testing.T) {
	src := &chanSource{ch: make(chan core.RawPacket)}
	eng := New(selfConfig(), Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx, src) }()

	eng.ManualToggle() // exercise the control path before shutdown
	cancel()
	close(src.ch)
	require.NoError(t, <-done)
}

func TestDispatchUnknownEventTypeIsNoOp(t *testing.T) {
	eng := New(selfConfig(), Deps{})
	eng.dispatch(event.Unknown{TS: ts(0), Code: 250})
	assert.Empty(t, eng.Snapshot().Actors)
}
