package photon

import (
	"fmt"
	"time"

	"github.com/gameobs/photometer/internal/core"
)

const (
	defaultBufferTTL = 30 * time.Second
	defaultArenaCap  = 16 << 20
)

type reassemblyKey struct {
	flow core.Flow
	seq  int32
}

type reassemblyBuffer struct {
	data     []byte
	got      []bool
	received int
	count    int32
	created  time.Time
	lastSeen time.Time
}

// ReassemblerConfig bounds the per-process reassembly state.
type ReassemblerConfig struct {
	BufferTTL time.Duration // drop incomplete buffers older than this
	ArenaCap  int           // total bytes across all buffers
}

// Reassembler rebuilds fragmented logical messages. One instance
// serves all flows; buffers are keyed by (flow, sequence). Reordering
// happens within a sequence only; messages are emitted in the order
// their last fragment arrives.
type Reassembler struct {
	cfg     ReassemblerConfig
	buffers map[reassemblyKey]*reassemblyBuffer
	bytes   int

	// Drop counters, read by the snapshot projector.
	Mismatched uint64
	Expired    uint64
	Evicted    uint64
	OutOfRange uint64
}

func NewReassembler(cfg ReassemblerConfig) *Reassembler {
	if cfg.BufferTTL <= 0 {
		cfg.BufferTTL = defaultBufferTTL
	}
	if cfg.ArenaCap <= 0 {
		cfg.ArenaCap = defaultArenaCap
	}
	return &Reassembler{
		cfg:     cfg,
		buffers: make(map[reassemblyKey]*reassemblyBuffer),
	}
}

// Push feeds one fragment. When the fragment completes its message the
// reassembled bytes are returned with ok=true. Time comes from the
// packet source, so replay uses capture-file time.
func (r *Reassembler) Push(flow core.Flow, ts time.Time, frag Fragment) ([]byte, bool, error) {
	r.gc(ts)

	if frag.FragmentCount <= 0 || frag.FragmentNum < 0 || frag.FragmentNum >= frag.FragmentCount {
		r.OutOfRange++
		return nil, false, nil
	}
	if frag.TotalLength <= 0 || frag.Offset < 0 ||
		int(frag.Offset)+len(frag.Data) > int(frag.TotalLength) {
		r.OutOfRange++
		return nil, false, nil
	}

	key := reassemblyKey{flow: flow, seq: frag.Sequence}
	buf, ok := r.buffers[key]
	if ok && (int32(len(buf.data)) != frag.TotalLength || buf.count != frag.FragmentCount) {
		// Fragments of one sequence disagree about the message shape.
		r.drop(key)
		r.Mismatched++
		return nil, false, fmt.Errorf("seq %d: %w", frag.Sequence, core.ErrReassemblyMismatch)
	}
	if !ok {
		if err := r.reserve(int(frag.TotalLength), ts); err != nil {
			return nil, false, err
		}
		buf = &reassemblyBuffer{
			data:    make([]byte, frag.TotalLength),
			got:     make([]bool, frag.FragmentCount),
			count:   frag.FragmentCount,
			created: ts,
		}
		r.buffers[key] = buf
		r.bytes += int(frag.TotalLength)
	}
	buf.lastSeen = ts

	copy(buf.data[frag.Offset:], frag.Data)
	if !buf.got[frag.FragmentNum] {
		buf.got[frag.FragmentNum] = true
		buf.received++
	}
	if buf.received < int(buf.count) {
		return nil, false, nil
	}
	out := buf.data
	r.drop(key)
	return out, true, nil
}

// Pending returns the number of incomplete buffers.
func (r *Reassembler) Pending() int { return len(r.buffers) }

func (r *Reassembler) drop(key reassemblyKey) {
	if buf, ok := r.buffers[key]; ok {
		r.bytes -= len(buf.data)
		delete(r.buffers, key)
	}
}

func (r *Reassembler) gc(now time.Time) {
	for key, buf := range r.buffers {
		if now.Sub(buf.lastSeen) > r.cfg.BufferTTL {
			r.drop(key)
			r.Expired++
		}
	}
}

// reserve makes room for a new buffer, evicting the oldest incomplete
// buffers when the arena cap would be exceeded.
func (r *Reassembler) reserve(n int, now time.Time) error {
	if n > r.cfg.ArenaCap {
		return core.ErrReassemblyOverflow
	}
	for r.bytes+n > r.cfg.ArenaCap {
		var oldest reassemblyKey
		var oldestTS time.Time
		found := false
		for key, buf := range r.buffers {
			if !found || buf.created.Before(oldestTS) {
				oldest = key
				oldestTS = buf.created
				found = true
			}
		}
		if !found {
			return core.ErrReassemblyOverflow
		}
		r.drop(oldest)
		r.Evicted++
	}
	return nil
}
