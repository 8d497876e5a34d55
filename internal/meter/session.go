package meter

import (
	"fmt"
	"time"

	"github.com/gameobs/photometer/internal/core"
)

// Mode selects the session boundary policy.
type Mode uint8

const (
	ModeBattle Mode = iota
	ModeZone
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeBattle:
		return "battle"
	case ModeZone:
		return "zone"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "battle", "":
		return ModeBattle, nil
	case "zone":
		return ModeZone, nil
	case "manual":
		return ModeManual, nil
	default:
		return ModeBattle, fmt.Errorf("photometer: unknown session mode %q", s)
	}
}

// Session is the live aggregation target. Exactly zero or one live
// session exists at any time; archiving freezes it into a Summary.
type Session struct {
	ID        uint64
	Mode      Mode
	Label     string
	StartedAt time.Time
	Endpoint  core.Endpoint
	Fame      float64
	PerActor  map[string]*Stats
}

func newSession(id uint64, mode Mode, label string, ts time.Time, ep core.Endpoint) *Session {
	return &Session{
		ID:        id,
		Mode:      mode,
		Label:     label,
		StartedAt: ts,
		Endpoint:  ep,
		PerActor:  make(map[string]*Stats),
	}
}

// Apply attributes one signed health delta to an actor.
func (s *Session) Apply(ts time.Time, name string, delta float64) {
	st, ok := s.PerActor[name]
	if !ok {
		st = &Stats{}
		s.PerActor[name] = st
	}
	st.Add(ts, delta)
}

// Totals is a frozen per-actor record inside an archived summary.
type Totals struct {
	Damage float64
	Heal   float64
}

// Summary is an archived session with ticks compacted to totals.
// Values are replaced, never mutated, when late events merge in.
type Summary struct {
	ID        uint64
	Mode      Mode
	Label     string
	StartedAt time.Time
	EndedAt   time.Time
	Fame      float64
	Actors    map[string]Totals
}

// freeze compacts the session into an immutable summary.
func (s *Session) freeze(endedAt time.Time) Summary {
	actors := make(map[string]Totals, len(s.PerActor))
	for name, st := range s.PerActor {
		actors[name] = Totals{Damage: st.Damage, Heal: st.Heal}
	}
	return Summary{
		ID:        s.ID,
		Mode:      s.Mode,
		Label:     s.Label,
		StartedAt: s.StartedAt,
		EndedAt:   endedAt,
		Fame:      s.Fame,
		Actors:    actors,
	}
}

// covers reports whether ts falls inside the summary's time range.
func (s Summary) covers(ts time.Time) bool {
	return !ts.Before(s.StartedAt) && !ts.After(s.EndedAt)
}
