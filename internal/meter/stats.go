// Package meter owns session lifecycle, per-actor aggregation and the
// immutable snapshot view handed to consumers.
package meter

import "time"

// Tick is one attributed health change inside the rolling rate window.
type Tick struct {
	TS   time.Time
	Dmg  float64
	Heal float64
}

// Stats accumulates one actor's contribution to a session. Totals are
// monotonic for the session's lifetime; ticks are pruned to the rate
// window before every read.
type Stats struct {
	Damage float64
	Heal   float64
	ticks  []Tick
}

// Add applies one signed health delta. Negative is damage dealt,
// positive is healing.
func (s *Stats) Add(ts time.Time, delta float64) {
	var t Tick
	t.TS = ts
	if delta < 0 {
		t.Dmg = -delta
		s.Damage += -delta
	} else {
		t.Heal = delta
		s.Heal += delta
	}
	s.ticks = append(s.ticks, t)
}

// prune drops ticks older than the window start. Backfilled ticks can
// land out of timestamp order, so the whole slice is filtered.
func (s *Stats) prune(cutoff time.Time) {
	kept := s.ticks[:0]
	for _, t := range s.ticks {
		if !t.TS.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	s.ticks = kept
}

// Rates returns damage and heal per second over the window ending at
// now.
func (s *Stats) Rates(now time.Time, window time.Duration) (dps, hps float64) {
	s.prune(now.Add(-window))
	var dmg, heal float64
	for _, t := range s.ticks {
		dmg += t.Dmg
		heal += t.Heal
	}
	w := window.Seconds()
	if w <= 0 {
		return 0, 0
	}
	return dmg / w, heal / w
}
