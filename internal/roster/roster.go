// Package roster tracks actor identity and party membership, and
// enforces the gating rule: only contributions from the local player
// and current party members may reach aggregation.
package roster

import (
	"sort"
	"time"

	"github.com/gameobs/photometer/internal/core"
)

const defaultDeferredCap = 256

// Tuple is one health change buffered while its actor is unresolved.
type Tuple struct {
	TS     time.Time
	Actor  core.ActorID
	Damage float64
	Heal   float64
}

// Config seeds the tracker. Seed values are provisional and are
// overwritten by the first identity observed on the wire.
type Config struct {
	SelfName    string
	SelfID      core.ActorID
	DeferredCap int // max buffered tuples per unresolved actor id
}

// Tracker owns identity state for one pipeline. Not safe for
// concurrent use; the pipeline goroutine is the only caller.
type Tracker struct {
	selfID   core.ActorID
	selfName string
	party    map[string]struct{}
	idToName map[core.ActorID]string
	deferred map[core.ActorID][]Tuple
	capPerID int

	// Evicted counts tuples pushed out of full per-id queues.
	Evicted uint64
	// Discarded counts tuples dropped wholesale on disband or zone change.
	Discarded uint64
}

func New(cfg Config) *Tracker {
	if cfg.DeferredCap <= 0 {
		cfg.DeferredCap = defaultDeferredCap
	}
	t := &Tracker{
		selfID:   cfg.SelfID,
		selfName: cfg.SelfName,
		party:    make(map[string]struct{}),
		idToName: make(map[core.ActorID]string),
		deferred: make(map[core.ActorID][]Tuple),
		capPerID: cfg.DeferredCap,
	}
	if cfg.SelfName != "" {
		t.party[cfg.SelfName] = struct{}{}
	}
	return t
}

// SelfName returns the local player's name, or "" before identification.
func (t *Tracker) SelfName() string { return t.selfName }

// SelfID returns the local player's actor id, or 0 before identification.
func (t *Tracker) SelfID() core.ActorID { return t.selfID }

// Party returns the current member names sorted for stable display.
func (t *Tracker) Party() []string {
	out := make([]string, 0, len(t.party))
	for name := range t.party {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PendingIDs returns the number of actor ids with buffered tuples.
func (t *Tracker) PendingIDs() int { return len(t.deferred) }

func (t *Tracker) allowed(name string) bool {
	if name == "" {
		return false
	}
	if name == t.selfName {
		return true
	}
	_, ok := t.party[name]
	return ok
}

// Resolve maps an actor id to an aggregatable name. ok=false means
// the caller must defer the event instead of applying it.
func (t *Tracker) Resolve(id core.ActorID) (string, bool) {
	if t.selfName != "" && id == t.selfID {
		return t.selfName, true
	}
	name, ok := t.idToName[id]
	if !ok || !t.allowed(name) {
		return "", false
	}
	return name, true
}

// Defer buffers a health change for an unresolved actor. Full queues
// evict their oldest tuple first.
func (t *Tracker) Defer(tup Tuple) {
	q := t.deferred[tup.Actor]
	if len(q) >= t.capPerID {
		copy(q, q[1:])
		q = q[:len(q)-1]
		t.Evicted++
	}
	t.deferred[tup.Actor] = append(q, tup)
}

// SetSelf installs the identity observed on the wire, overriding any
// configured seed. Tuples buffered under the self id are released for
// backfill.
func (t *Tracker) SetSelf(id core.ActorID, name string) []Tuple {
	if t.selfName != "" && t.selfName != name {
		delete(t.party, t.selfName)
	}
	t.selfID = id
	t.selfName = name
	t.party[name] = struct{}{}
	return t.release(id)
}

// Learn records a PlayerJoined mapping. When the name is admissible
// the actor's buffered tuples are released in original order.
func (t *Tracker) Learn(id core.ActorID, name string) []Tuple {
	t.idToName[id] = name
	if !t.allowed(name) {
		return nil
	}
	return t.release(id)
}

// SetParty replaces the member set wholesale. An empty list means
// disband. Buffered tuples whose ids are already mapped to newly
// admitted names are released; tuples mapped to names outside the new
// set are dropped.
func (t *Tracker) SetParty(names []string) []Tuple {
	if len(names) == 0 {
		t.Disband()
		return nil
	}
	t.party = make(map[string]struct{}, len(names)+1)
	for _, n := range names {
		t.party[n] = struct{}{}
	}
	if t.selfName != "" {
		t.party[t.selfName] = struct{}{}
	}
	return t.reconcile()
}

// Disband collapses the party to the local player and drops buffered
// tuples for ids mapped outside it.
func (t *Tracker) Disband() {
	t.party = make(map[string]struct{}, 1)
	if t.selfName != "" {
		t.party[t.selfName] = struct{}{}
	}
	t.reconcile()
}

// ZoneChange clears everything tied to the old zone's actor-id space.
// Self identity and party membership survive the transition.
func (t *Tracker) ZoneChange() {
	t.idToName = make(map[core.ActorID]string)
	for _, q := range t.deferred {
		t.Discarded += uint64(len(q))
	}
	t.deferred = make(map[core.ActorID][]Tuple)
}

func (t *Tracker) release(id core.ActorID) []Tuple {
	q, ok := t.deferred[id]
	if !ok {
		return nil
	}
	delete(t.deferred, id)
	return q
}

// reconcile sweeps the deferred buffer after a membership change:
// mapped-and-admitted ids release, mapped-and-excluded ids drop,
// unmapped ids stay pending.
func (t *Tracker) reconcile() []Tuple {
	var released []Tuple
	for id, q := range t.deferred {
		name, mapped := t.idToName[id]
		if !mapped {
			continue
		}
		if t.allowed(name) {
			released = append(released, q...)
			delete(t.deferred, id)
		} else {
			t.Discarded += uint64(len(q))
			delete(t.deferred, id)
		}
	}
	sort.SliceStable(released, func(i, j int) bool {
		return released[i].TS.Before(released[j].TS)
	})
	return released
}
