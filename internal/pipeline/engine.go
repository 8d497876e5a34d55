// Package pipeline wires capture, decoding, identity and aggregation
// into the two-goroutine engine: a capture goroutine feeding a bounded
// queue, and a pipeline goroutine owning every piece of mutable state.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/event"
	"github.com/gameobs/photometer/internal/items"
	"github.com/gameobs/photometer/internal/log"
	"github.com/gameobs/photometer/internal/meter"
	"github.com/gameobs/photometer/internal/metrics"
	"github.com/gameobs/photometer/internal/photon"
	"github.com/gameobs/photometer/internal/roster"
	"github.com/gameobs/photometer/internal/sink"
	"github.com/gameobs/photometer/internal/source"
)

const defaultQueueSize = 4096

// Config assembles the engine. Zero values select the defaults used
// against the current game dialect.
type Config struct {
	QueueSize   int
	ServerPorts []uint16
	ZonePorts   []uint16
	// WallClock drives idle timers from time.Now instead of packet
	// timestamps. Live capture wants it; replay must not use it.
	WallClock bool
	SortKey   meter.SortKey

	Meter      meter.Config
	Roster     roster.Config
	Codes      event.Codes
	Reassembly photon.ReassemblerConfig
}

// Deps are optional collaborators.
type Deps struct {
	Sink  *sink.PayloadSink
	Items *items.Index
	Zones *items.ZoneIndex
}

// Engine runs the meter core. Construct with New, drive with Run,
// read with Snapshot; control methods may be called from any
// goroutine while Run is active.
type Engine struct {
	cfg  Config
	deps Deps
	log  log.Logger

	reasm  *photon.Reassembler
	events *event.Registry
	roster *roster.Tracker
	meter  *meter.Manager

	queue   chan core.RawPacket
	control chan func()

	snapshot       atomic.Pointer[meter.Snapshot]
	captureDropped atomic.Uint64

	// Owned by the pipeline goroutine.
	clock         time.Time
	server        core.Endpoint
	serverPorts   map[uint16]bool
	zonePorts     map[uint16]bool
	packets         uint64
	malformed       uint64
	unknownCommands uint64
	unknownTags     uint64
	unknownEvents   uint64
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if len(cfg.ServerPorts) == 0 {
		cfg.ServerPorts = []uint16{5055, 5056, 5058}
	}
	if len(cfg.ZonePorts) == 0 {
		cfg.ZonePorts = []uint16{5056, 5058}
	}
	if cfg.Codes == (event.Codes{}) {
		cfg.Codes = event.DefaultCodes()
	}
	e := &Engine{
		cfg:         cfg,
		deps:        deps,
		log:         log.GetLogger(),
		reasm:       photon.NewReassembler(cfg.Reassembly),
		events:      event.NewRegistry(cfg.Codes),
		roster:      roster.New(cfg.Roster),
		meter:       meter.NewManager(cfg.Meter),
		queue:       make(chan core.RawPacket, cfg.QueueSize),
		control:     make(chan func(), 16),
		serverPorts: portSet(cfg.ServerPorts),
		zonePorts:   portSet(cfg.ZonePorts),
	}
	e.publish()
	return e
}

func portSet(ports []uint16) map[uint16]bool {
	set := make(map[uint16]bool, len(ports))
	for _, p := range ports {
		set[p] = true
	}
	return set
}

// Snapshot returns the most recently published view.
func (e *Engine) Snapshot() *meter.Snapshot { return e.snapshot.Load() }

// SetMode switches the session boundary policy.
func (e *Engine) SetMode(mode meter.Mode) {
	e.control <- func() { e.meter.SetMode(e.now(), mode) }
}

// ManualToggle opens or closes the manual session.
func (e *Engine) ManualToggle() {
	e.control <- func() { e.meter.ManualToggle(e.now()) }
}

// ArchiveNow closes the live session immediately.
func (e *Engine) ArchiveNow() {
	e.control <- func() { e.meter.ArchiveNow(e.now()) }
}

// ResetFame zeroes the live session's fame counter.
func (e *Engine) ResetFame() {
	e.control <- func() { e.meter.ResetFame() }
}

// SeedSelf installs a provisional local-player identity.
func (e *Engine) SeedSelf(name string, id core.ActorID) {
	e.control <- func() { e.replay(e.roster.SetSelf(id, name)) }
}

// Run drives the engine until the source ends or ctx is cancelled.
// The queue is drained to completion before returning.
func (e *Engine) Run(ctx context.Context, src source.Source) error {
	go e.capture(ctx, src)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case fn := <-e.control:
			fn()
			e.publish()
		case p, ok := <-e.queue:
			if !ok {
				e.publish()
				return nil
			}
			e.process(p)
			e.publish()
		case <-ticker.C:
			e.meter.Tick(e.now())
			e.publish()
		}
	}
}

// capture pumps the source into the bounded queue, dropping the
// oldest payload on overflow. Closing the queue signals end of input.
func (e *Engine) capture(ctx context.Context, src source.Source) {
	defer close(e.queue)
	go func() {
		<-ctx.Done()
		src.Close()
	}()
	for {
		p, err := src.Next()
		if err != nil {
			if !errors.Is(err, core.ErrSourceClosed) && ctx.Err() == nil {
				e.log.WithError(err).Error("capture stopped")
			}
			return
		}
		e.push(p)
	}
}

func (e *Engine) push(p core.RawPacket) {
	for {
		select {
		case e.queue <- p:
			return
		default:
			select {
			case <-e.queue:
				e.captureDropped.Add(1)
				metrics.CaptureDropsTotal.Inc()
			default:
			}
		}
	}
}

func (e *Engine) now() time.Time {
	if e.cfg.WallClock {
		return time.Now()
	}
	if e.clock.IsZero() {
		return time.Now()
	}
	return e.clock
}

func (e *Engine) publish() {
	e.snapshot.Store(e.meter.Project(e.now(), e.cfg.SortKey, e.deps.Items.Resolve, e.counters()))
}

func (e *Engine) counters() meter.Counters {
	return meter.Counters{
		Packets:           e.packets,
		Malformed:         e.malformed,
		UnknownCommands:   e.unknownCommands,
		ReassemblyDropped: e.reasm.Mismatched + e.reasm.Expired + e.reasm.Evicted + e.reasm.OutOfRange,
		CaptureDropped:    e.captureDropped.Load(),
		DeferredEvicted:   e.roster.Evicted,
		UnknownTags:       e.unknownTags,
		UnknownEvents:     e.unknownEvents,
	}
}
