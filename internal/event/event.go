// Package event turns classified protocol messages into typed domain
// events. The mapping from (message kind, code) to event is a runtime
// table so new dialect codes can be wired from configuration.
package event

import (
	"time"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/protocol16"
)

// Event is one decoded game occurrence. Concrete types carry the
// fields the pipeline acts on; everything else stays in Unknown.
type Event interface {
	Time() time.Time
}

// HealthUpdate reports a hitpoint change on a target. Negative delta
// is damage dealt by Actor, positive is healing.
type HealthUpdate struct {
	TS     time.Time
	Target core.ActorID
	Actor  core.ActorID
	Delta  float64
}

func (e HealthUpdate) Time() time.Time { return e.TS }

// PlayerJoined announces an actor entering visibility with its name
// and equipped item list. Items[0] is the main-hand weapon.
type PlayerJoined struct {
	TS    time.Time
	Actor core.ActorID
	Name  string
	Items []int32
}

func (e PlayerJoined) Time() time.Time { return e.TS }

// PartyUpdate replaces the party member set wholesale.
type PartyUpdate struct {
	TS    time.Time
	Names []string
}

func (e PartyUpdate) Time() time.Time { return e.TS }

// PartyDisbanded collapses the party back to the local player.
type PartyDisbanded struct {
	TS time.Time
}

func (e PartyDisbanded) Time() time.Time { return e.TS }

// SelfIdentified binds the local player's actor id and name.
type SelfIdentified struct {
	TS    time.Time
	Actor core.ActorID
	Name  string
}

func (e SelfIdentified) Time() time.Time { return e.TS }

// ZoneChanged marks a map transition. It is synthesized by the
// pipeline from a server endpoint change rather than decoded from a
// message body, so it carries the new endpoint instead of params.
type ZoneChanged struct {
	TS     time.Time
	Server core.Endpoint
}

func (e ZoneChanged) Time() time.Time { return e.TS }

// CombatStateChange flags an actor entering or leaving combat. Only
// transitions of the local player drive battle session boundaries.
type CombatStateChange struct {
	TS       time.Time
	Actor    core.ActorID
	InCombat bool
}

func (e CombatStateChange) Time() time.Time { return e.TS }

// FameGained accumulates into the live session's fame counter.
type FameGained struct {
	TS   time.Time
	Fame float64
}

func (e FameGained) Time() time.Time { return e.TS }

// Unknown wraps a message with no registered builder. It never
// touches aggregation but may be dumped for offline analysis.
type Unknown struct {
	TS     time.Time
	Kind   core.MessageKind
	Code   uint8
	Params protocol16.ParamMap
}

func (e Unknown) Time() time.Time { return e.TS }
