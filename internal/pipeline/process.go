package pipeline

import (
	"errors"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/event"
	"github.com/gameobs/photometer/internal/metrics"
	"github.com/gameobs/photometer/internal/photon"
	"github.com/gameobs/photometer/internal/protocol16"
	"github.com/gameobs/photometer/internal/roster"
)

// process runs one UDP payload through parse, reassembly, decode and
// dispatch. Runs on the pipeline goroutine only.
func (e *Engine) process(p core.RawPacket) {
	e.packets++
	metrics.PacketsTotal.Inc()
	if !p.Timestamp.IsZero() {
		e.clock = p.Timestamp
	}
	e.trackServer(p)

	d, skipped, err := photon.ParseDatagram(p.Payload)
	if err != nil {
		e.malformed++
		metrics.MalformedTotal.WithLabelValues("datagram").Inc()
	}
	if skipped > 0 {
		e.unknownCommands += uint64(skipped)
		metrics.UnknownCommandsTotal.Add(float64(skipped))
	}
	for _, cmd := range d.Commands {
		switch cmd.Type {
		case photon.CommandUnreliable:
			e.classify(p, cmd.ChannelID, false, 0, cmd.Body)
		case photon.CommandReliable:
			e.classify(p, cmd.ChannelID, true, uint16(cmd.ReliableSeq), cmd.Body)
		case photon.CommandReliableFragment:
			e.fragment(p, cmd)
		}
	}
}

// trackServer pins the game-server endpoint and synthesizes a zone
// change when a zone-port server differs from the pinned one. The
// first observation labels the zone without clearing identity state:
// nothing learned before it belongs to another map.
func (e *Engine) trackServer(p core.RawPacket) {
	srv, ok := e.serverOf(p)
	if !ok || !e.zonePorts[srv.Port] || srv == e.server {
		return
	}
	if e.server.IsValid() {
		e.roster.ZoneChange()
	}
	e.server = srv
	e.dispatch(event.ZoneChanged{TS: e.now(), Server: srv})
}

func (e *Engine) serverOf(p core.RawPacket) (core.Endpoint, bool) {
	if e.serverPorts[p.Src.Port] {
		return p.Src, true
	}
	if e.serverPorts[p.Dst.Port] {
		return p.Dst, true
	}
	return core.Endpoint{}, false
}

func (e *Engine) fragment(p core.RawPacket, cmd photon.Command) {
	frag, err := photon.ParseFragment(cmd.Body)
	if err != nil {
		e.malformed++
		metrics.MalformedTotal.WithLabelValues("fragment").Inc()
		return
	}
	mm, ex, ev, oor := e.reasm.Mismatched, e.reasm.Expired, e.reasm.Evicted, e.reasm.OutOfRange
	full, done, err := e.reasm.Push(p.Flow(), e.now(), frag)
	e.reportReassembly(mm, ex, ev, oor)
	if err != nil || !done {
		return
	}
	e.classify(p, cmd.ChannelID, true, uint16(frag.Sequence), full)
}

func (e *Engine) reportReassembly(mm, ex, ev, oor uint64) {
	for _, d := range []struct {
		reason string
		delta  uint64
	}{
		{"mismatch", e.reasm.Mismatched - mm},
		{"expired", e.reasm.Expired - ex},
		{"evicted", e.reasm.Evicted - ev},
		{"out_of_range", e.reasm.OutOfRange - oor},
	} {
		if d.delta > 0 {
			metrics.ReassemblyDropsTotal.WithLabelValues(d.reason).Add(float64(d.delta))
		}
	}
	metrics.ReassemblyPendingBuffers.Set(float64(e.reasm.Pending()))
}

// classify decodes one complete message body and dispatches the event
// it carries. A body with unknown type tags is kept with whatever
// parameters decoded before the bad tag.
func (e *Engine) classify(p core.RawPacket, channel uint8, reliable bool, seq uint16, body []byte) {
	msg, err := photon.Classify(channel, reliable, seq, body)
	if err != nil {
		var ute *protocol16.UnknownTagError
		if !errors.As(err, &ute) {
			e.malformed++
			metrics.MalformedTotal.WithLabelValues("message").Inc()
			return
		}
		e.unknownTags++
		metrics.UnknownTagsTotal.Inc()
		e.dump(msg.Kind, msg.Code, body)
	}

	evt, known, err := e.events.Build(e.now(), msg.Kind, msg.Code, msg.Params)
	if err != nil {
		e.malformed++
		metrics.MalformedTotal.WithLabelValues("event").Inc()
		return
	}
	if !known {
		e.unknownEvents++
		metrics.UnknownEventsTotal.Inc()
		e.dump(msg.Kind, msg.Code, body)
		return
	}
	e.dispatch(evt)
}

func (e *Engine) dump(kind core.MessageKind, code uint8, body []byte) {
	if e.deps.Sink != nil {
		e.deps.Sink.Dump(e.now(), kind, code, body)
	}
}

func (e *Engine) dispatch(evt event.Event) {
	switch ev := evt.(type) {
	case event.HealthUpdate:
		e.health(ev)
	case event.PlayerJoined:
		if len(ev.Items) > 0 {
			e.meter.RecordWeapon(ev.Name, ev.Items[0])
		}
		e.replay(e.roster.Learn(ev.Actor, ev.Name))
	case event.PartyUpdate:
		e.replay(e.roster.SetParty(ev.Names))
	case event.PartyDisbanded:
		e.roster.Disband()
	case event.SelfIdentified:
		e.replay(e.roster.SetSelf(ev.Actor, ev.Name))
	case event.ZoneChanged:
		e.meter.ZoneChange(ev.TS, ev.Server, e.deps.Zones.Label(ev.Server.String()))
	case event.CombatStateChange:
		if ev.Actor == e.roster.SelfID() {
			e.meter.CombatState(ev.TS, ev.InCombat)
		}
	case event.FameGained:
		e.meter.ApplyFame(ev.TS, ev.Fame)
	}
}

func (e *Engine) health(ev event.HealthUpdate) {
	name, ok := e.roster.Resolve(ev.Actor)
	if ok {
		e.meter.ApplyHealth(ev.TS, name, ev.Delta)
		return
	}
	tup := roster.Tuple{TS: ev.TS, Actor: ev.Actor}
	if ev.Delta < 0 {
		tup.Damage = -ev.Delta
	} else {
		tup.Heal = ev.Delta
	}
	before := e.roster.Evicted
	e.roster.Defer(tup)
	if d := e.roster.Evicted - before; d > 0 {
		metrics.DeferredEvictionsTotal.Add(float64(d))
	}
}

// replay feeds health tuples released from the deferred queue back
// into aggregation at their original timestamps. Tuples older than
// the live session land in archived summaries through the history
// merge path.
func (e *Engine) replay(tuples []roster.Tuple) {
	for _, t := range tuples {
		name, ok := e.roster.Resolve(t.Actor)
		if !ok {
			continue
		}
		delta := t.Heal - t.Damage
		e.meter.ApplyHealth(t.TS, name, delta)
	}
}
