package meter

import (
	"sort"
	"time"
)

// SortKey selects the ranking column for the actor table.
type SortKey uint8

const (
	SortDamage SortKey = iota
	SortHeal
	SortDPS
	SortHPS
)

// Counters carries the pipeline drop/error counters into the snapshot
// so consumers can see degradation without a metrics scrape.
type Counters struct {
	Packets           uint64 `json:"packets"`
	Malformed         uint64 `json:"malformed"`
	UnknownCommands   uint64 `json:"unknown_commands"`
	ReassemblyDropped uint64 `json:"reassembly_dropped"`
	CaptureDropped    uint64 `json:"capture_dropped"`
	DeferredEvicted   uint64 `json:"deferred_evicted"`
	UnknownTags       uint64 `json:"unknown_tags"`
	UnknownEvents     uint64 `json:"unknown_events"`
}

// ActorView is one row of the ranked actor table. BarRatio is a
// display aid and stays out of the export schema.
type ActorView struct {
	Name     string  `json:"name"`
	Damage   uint64  `json:"damage"`
	Heal     uint64  `json:"heal"`
	DPS      float64 `json:"dps"`
	HPS      float64 `json:"hps"`
	Weapon   *string `json:"weapon"`
	BarRatio float64 `json:"-"`
}

// SummaryView is one archived session in the snapshot.
type SummaryView struct {
	Label     string      `json:"label"`
	StartedAt int64       `json:"started_at"`
	EndedAt   int64       `json:"ended_at"`
	Actors    []ActorView `json:"actors"`
	Fame      uint64      `json:"fame"`
}

// Snapshot is the immutable view published to readers. Every field is
// a copy; nothing aliases live pipeline state.
type Snapshot struct {
	Mode        string        `json:"mode"`
	Zone        string        `json:"zone"`
	ElapsedS    float64       `json:"elapsed_s"`
	Fame        uint64        `json:"fame"`
	FamePerHour float64       `json:"fame_per_hour"`
	Actors      []ActorView   `json:"actors"`
	History     []SummaryView `json:"history"`
	Counters    Counters      `json:"counters"`
}

// WeaponResolver maps a main-hand item id to a display category.
type WeaponResolver func(item int32) (string, bool)

// Project builds a snapshot of the manager's state at now. The
// returned value owns all its memory.
func (m *Manager) Project(now time.Time, key SortKey, resolve WeaponResolver, counters Counters) *Snapshot {
	snap := &Snapshot{
		Mode:     m.mode.String(),
		Zone:     m.zoneLabel,
		Counters: counters,
	}
	if m.live != nil {
		elapsed := now.Sub(m.live.StartedAt).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		snap.ElapsedS = elapsed
		snap.Fame = uint64(m.live.Fame)
		if elapsed > 0 {
			snap.FamePerHour = m.live.Fame / (elapsed / 3600)
		}
		snap.Actors = make([]ActorView, 0, len(m.live.PerActor))
		for name, st := range m.live.PerActor {
			dps, hps := st.Rates(now, m.cfg.RateWindow)
			snap.Actors = append(snap.Actors, ActorView{
				Name:   name,
				Damage: uint64(st.Damage),
				Heal:   uint64(st.Heal),
				DPS:    dps,
				HPS:    hps,
				Weapon: m.weaponOf(name, resolve),
			})
		}
		rankActors(snap.Actors, key)
	}
	snap.History = m.projectHistory(key, resolve)
	return snap
}

func (m *Manager) weaponOf(name string, resolve WeaponResolver) *string {
	if resolve == nil {
		return nil
	}
	item, ok := m.weaponByName[name]
	if !ok {
		return nil
	}
	category, ok := resolve(item)
	if !ok {
		return nil
	}
	return &category
}

func (m *Manager) projectHistory(key SortKey, resolve WeaponResolver) []SummaryView {
	entries := m.history.Entries()
	if len(entries) == 0 {
		return nil
	}
	out := make([]SummaryView, 0, len(entries))
	for _, s := range entries {
		actors := make([]ActorView, 0, len(s.Actors))
		for name, t := range s.Actors {
			actors = append(actors, ActorView{
				Name:   name,
				Damage: uint64(t.Damage),
				Heal:   uint64(t.Heal),
				Weapon: m.weaponOf(name, resolve),
			})
		}
		rankActors(actors, key)
		out = append(out, SummaryView{
			Label:     s.Label,
			StartedAt: s.StartedAt.Unix(),
			EndedAt:   s.EndedAt.Unix(),
			Actors:    actors,
			Fame:      uint64(s.Fame),
		})
	}
	return out
}

func sortValue(a ActorView, key SortKey) float64 {
	switch key {
	case SortHeal:
		return float64(a.Heal)
	case SortDPS:
		return a.DPS
	case SortHPS:
		return a.HPS
	default:
		return float64(a.Damage)
	}
}

// rankActors orders rows descending by the requested key, breaking
// ties by total damage then name, and fills bar ratios against the
// leader.
func rankActors(actors []ActorView, key SortKey) {
	sort.Slice(actors, func(i, j int) bool {
		vi, vj := sortValue(actors[i], key), sortValue(actors[j], key)
		if vi != vj {
			return vi > vj
		}
		if actors[i].Damage != actors[j].Damage {
			return actors[i].Damage > actors[j].Damage
		}
		return actors[i].Name < actors[j].Name
	})
	if len(actors) == 0 {
		return
	}
	max := sortValue(actors[0], key)
	for i := range actors {
		if max <= 0 {
			actors[i].BarRatio = 0
			continue
		}
		r := sortValue(actors[i], key) / max
		if r < 0 {
			r = 0
		} else if r > 1 {
			r = 1
		}
		actors[i].BarRatio = r
	}
}
