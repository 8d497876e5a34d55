package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/protocol16"
)

// ErrMissingParam is reported when a registered builder cannot find a
// parameter its event requires.
var ErrMissingParam = errors.New("photometer: required event parameter missing")

// Builder constructs one typed event from a decoded parameter table.
type Builder func(ts time.Time, params protocol16.ParamMap) (Event, error)

// Key identifies one message shape in the registry.
type Key struct {
	Kind core.MessageKind
	Code uint8
}

// Registry maps (kind, code) pairs to event builders. Lookups that
// miss produce an Unknown event, never an error.
type Registry struct {
	builders map[Key]Builder
}

// Codes holds the dialect's numeric message codes. Servers renumber
// these between protocol revisions, so they are configuration, not
// constants.
type Codes struct {
	HealthUpdate      uint8 `mapstructure:"health_update"`
	SelfIdentified    uint8 `mapstructure:"self_identified"`
	PlayerJoined      uint8 `mapstructure:"player_joined"`
	PartyUpdate       uint8 `mapstructure:"party_update"`
	PartyDisbanded    uint8 `mapstructure:"party_disbanded"`
	CombatStateChange uint8 `mapstructure:"combat_state"`
	FameGained        uint8 `mapstructure:"fame_gained"`
}

// DefaultCodes returns the code table observed in the current dialect.
func DefaultCodes() Codes {
	return Codes{
		HealthUpdate:      6,
		SelfIdentified:    2,
		PlayerJoined:      27,
		PartyUpdate:       225,
		PartyDisbanded:    226,
		CombatStateChange: 18,
		FameGained:        71,
	}
}

// NewRegistry builds a registry for one code table.
func NewRegistry(c Codes) *Registry {
	r := &Registry{builders: make(map[Key]Builder)}
	r.Register(core.KindEvent, c.HealthUpdate, buildHealthUpdate)
	r.Register(core.KindEvent, c.PlayerJoined, buildPlayerJoined)
	r.Register(core.KindEvent, c.PartyUpdate, buildPartyUpdate)
	r.Register(core.KindEvent, c.PartyDisbanded, buildPartyDisbanded)
	r.Register(core.KindEvent, c.CombatStateChange, buildCombatStateChange)
	r.Register(core.KindEvent, c.FameGained, buildFameGained)
	// The join handshake response carries the local player's identity.
	r.Register(core.KindResponse, c.SelfIdentified, buildSelfIdentified)
	return r
}

// Register installs or replaces the builder for one (kind, code) pair.
func (r *Registry) Register(kind core.MessageKind, code uint8, b Builder) {
	r.builders[Key{Kind: kind, Code: code}] = b
}

// Build resolves a classified message into a typed event. Messages
// with no registered builder come back as Unknown with ok=false so the
// caller can route them to the payload sink.
func (r *Registry) Build(ts time.Time, kind core.MessageKind, code uint8, params protocol16.ParamMap) (Event, bool, error) {
	b, ok := r.builders[Key{Kind: kind, Code: code}]
	if !ok {
		return Unknown{TS: ts, Kind: kind, Code: code, Params: params}, false, nil
	}
	evt, err := b(ts, params)
	if err != nil {
		return nil, true, fmt.Errorf("%s code %d: %w", kind, code, err)
	}
	return evt, true, nil
}

func buildHealthUpdate(ts time.Time, params protocol16.ParamMap) (Event, error) {
	target, ok := intParam(params, 0)
	if !ok {
		return nil, fmt.Errorf("target id: %w", ErrMissingParam)
	}
	delta, ok := floatParam(params, 2)
	if !ok {
		return nil, fmt.Errorf("value delta: %w", ErrMissingParam)
	}
	// No actor means a self-applied change (regen, self-heal).
	actor, ok := intParam(params, 6)
	if !ok {
		actor = target
	}
	return HealthUpdate{
		TS:     ts,
		Target: core.ActorID(target),
		Actor:  core.ActorID(actor),
		Delta:  delta,
	}, nil
}

func buildPlayerJoined(ts time.Time, params protocol16.ParamMap) (Event, error) {
	id, ok := intParam(params, 0)
	if !ok {
		return nil, fmt.Errorf("actor id: %w", ErrMissingParam)
	}
	name, ok := params[1].(string)
	if !ok {
		return nil, fmt.Errorf("name: %w", ErrMissingParam)
	}
	return PlayerJoined{
		TS:    ts,
		Actor: core.ActorID(id),
		Name:  name,
		Items: intSliceParam(params, 40),
	}, nil
}

func buildPartyUpdate(ts time.Time, params protocol16.ParamMap) (Event, error) {
	return PartyUpdate{TS: ts, Names: stringSliceParam(params, 5)}, nil
}

func buildPartyDisbanded(ts time.Time, _ protocol16.ParamMap) (Event, error) {
	return PartyDisbanded{TS: ts}, nil
}

func buildSelfIdentified(ts time.Time, params protocol16.ParamMap) (Event, error) {
	id, ok := intParam(params, 0)
	if !ok {
		return nil, fmt.Errorf("actor id: %w", ErrMissingParam)
	}
	name, ok := params[1].(string)
	if !ok {
		return nil, fmt.Errorf("name: %w", ErrMissingParam)
	}
	return SelfIdentified{TS: ts, Actor: core.ActorID(id), Name: name}, nil
}

func buildCombatStateChange(ts time.Time, params protocol16.ParamMap) (Event, error) {
	id, ok := intParam(params, 0)
	if !ok {
		return nil, fmt.Errorf("actor id: %w", ErrMissingParam)
	}
	in, ok := params[1].(bool)
	if !ok {
		return nil, fmt.Errorf("combat flag: %w", ErrMissingParam)
	}
	return CombatStateChange{TS: ts, Actor: core.ActorID(id), InCombat: in}, nil
}

func buildFameGained(ts time.Time, params protocol16.ParamMap) (Event, error) {
	fame, ok := floatParam(params, 1)
	if !ok {
		return nil, fmt.Errorf("fame: %w", ErrMissingParam)
	}
	return FameGained{TS: ts, Fame: fame}, nil
}
