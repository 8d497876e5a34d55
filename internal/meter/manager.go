package meter

import (
	"fmt"
	"time"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/metrics"
)

const (
	defaultBattleTimeout = 20 * time.Second
	defaultCombatGrace   = 250 * time.Millisecond
	defaultRateWindow    = 10 * time.Second
)

// Config bounds the session engine. Zero values select the defaults.
type Config struct {
	Mode          Mode
	BattleTimeout time.Duration // battle mode: close after this long without events
	CombatGrace   time.Duration // battle mode: accept trailing ticks after combat ends
	RateWindow    time.Duration // rolling DPS/HPS window
	HistoryCap    int
}

func (c Config) withDefaults() Config {
	if c.BattleTimeout <= 0 {
		c.BattleTimeout = defaultBattleTimeout
	}
	if c.CombatGrace <= 0 {
		c.CombatGrace = defaultCombatGrace
	}
	if c.RateWindow <= 0 {
		c.RateWindow = defaultRateWindow
	}
	return c
}

// Manager drives session lifecycle for one pipeline. All time comes
// from the packet source so replay behaves exactly like live capture.
// Not safe for concurrent use.
type Manager struct {
	cfg     Config
	mode    Mode
	live    *Session
	history *HistoryRing

	nextID     uint64
	battleSeq  int
	manualSeq  int
	lastEvent  time.Time
	graceUntil time.Time
	inGrace    bool

	zoneLabel    string
	zoneEndpoint core.Endpoint

	// weaponByName survives session boundaries; equipment does not
	// change when a fight ends.
	weaponByName map[string]int32
}

func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:          cfg,
		mode:         cfg.Mode,
		history:      NewHistoryRing(cfg.HistoryCap),
		weaponByName: make(map[string]int32),
	}
}

// Mode returns the active boundary policy.
func (m *Manager) Mode() Mode { return m.mode }

// Live returns the current session, or nil between sessions.
func (m *Manager) Live() *Session { return m.live }

// History exposes the archived ring.
func (m *Manager) History() *HistoryRing { return m.history }

// ApplyHealth attributes one resolved health change. Late backfill
// whose timestamp belongs to an archived session merges there instead
// of polluting the live session.
func (m *Manager) ApplyHealth(ts time.Time, name string, delta float64) {
	if m.live == nil || ts.Before(m.live.StartedAt) {
		if m.history.Merge(ts, name, delta) {
			return
		}
	}
	m.expire(ts)
	if m.live == nil {
		if m.mode == ModeManual {
			return
		}
		m.open(ts)
	}
	m.live.Apply(ts, name, delta)
	m.lastEvent = ts
}

// ApplyFame accumulates fame into the live session. Fame alone never
// opens a session.
func (m *Manager) ApplyFame(ts time.Time, fame float64) {
	m.expire(ts)
	if m.live == nil {
		return
	}
	m.live.Fame += fame
}

// CombatState handles the local player's combat transitions. Entering
// combat opens a battle session; leaving schedules a close after the
// grace period so trailing ticks still land in the ending fight.
func (m *Manager) CombatState(ts time.Time, inCombat bool) {
	m.expire(ts)
	if m.mode != ModeBattle {
		return
	}
	if inCombat {
		m.inGrace = false
		if m.live == nil {
			m.open(ts)
		}
		return
	}
	if m.live != nil {
		m.inGrace = true
		m.graceUntil = ts.Add(m.cfg.CombatGrace)
	}
}

// ZoneChange rotates the zone label and, in zone mode, the session.
func (m *Manager) ZoneChange(ts time.Time, ep core.Endpoint, label string) {
	m.expire(ts)
	m.zoneEndpoint = ep
	m.zoneLabel = label
	if m.mode != ModeZone {
		return
	}
	if m.live != nil && m.live.Endpoint == ep {
		return
	}
	m.archive(ts)
	m.open(ts)
}

// Tick advances session timers without an event. The pipeline calls
// it on its poll interval.
func (m *Manager) Tick(ts time.Time) {
	m.expire(ts)
}

// SetMode switches the boundary policy, archiving any live session.
func (m *Manager) SetMode(ts time.Time, mode Mode) {
	if mode == m.mode {
		return
	}
	m.archive(ts)
	m.mode = mode
}

// ManualToggle opens or closes the manual session.
func (m *Manager) ManualToggle(ts time.Time) {
	if m.mode != ModeManual {
		return
	}
	if m.live != nil {
		m.archive(ts)
		return
	}
	m.open(ts)
}

// ArchiveNow closes the live session regardless of mode.
func (m *Manager) ArchiveNow(ts time.Time) {
	m.archive(ts)
}

// ResetFame zeroes the live session's fame counter.
func (m *Manager) ResetFame() {
	if m.live != nil {
		m.live.Fame = 0
	}
}

// RecordWeapon remembers an actor's main-hand item for the projector.
func (m *Manager) RecordWeapon(name string, item int32) {
	if item != 0 {
		m.weaponByName[name] = item
	}
}

// ZoneLabel returns the label of the zone currently observed.
func (m *Manager) ZoneLabel() string { return m.zoneLabel }

func (m *Manager) open(ts time.Time) {
	var label string
	ep := core.Endpoint{}
	switch m.mode {
	case ModeBattle:
		m.battleSeq++
		label = fmt.Sprintf("Battle %d", m.battleSeq)
	case ModeZone:
		label = m.zoneLabel
		if label == "" {
			label = "Unknown Zone"
		}
		ep = m.zoneEndpoint
	case ModeManual:
		m.manualSeq++
		label = fmt.Sprintf("Manual %d", m.manualSeq)
	}
	m.nextID++
	m.live = newSession(m.nextID, m.mode, label, ts, ep)
	m.lastEvent = ts
	m.inGrace = false
}

// expire closes the live battle session when its grace or idle
// timeout has passed.
func (m *Manager) expire(ts time.Time) {
	if m.live == nil || m.mode != ModeBattle {
		return
	}
	if m.inGrace && ts.After(m.graceUntil) {
		m.archive(m.graceUntil)
		return
	}
	if !m.inGrace && ts.Sub(m.lastEvent) >= m.cfg.BattleTimeout {
		// The fight is considered over when the timeout elapsed, not
		// when the closing tick happened to run.
		m.archive(m.lastEvent.Add(m.cfg.BattleTimeout))
	}
}

func (m *Manager) archive(endedAt time.Time) {
	if m.live == nil {
		return
	}
	metrics.SessionsArchivedTotal.WithLabelValues(m.live.Mode.String()).Inc()
	m.history.Push(m.live.freeze(endedAt))
	m.live = nil
	m.inGrace = false
}
