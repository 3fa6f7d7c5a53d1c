package pipeline

import (
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/stats"
)

// DecodeUnit splits macro-ops into micro-ops and performs an early
// misprediction check: a direct branch whose target is already known at
// decode time (no execution required) can be corrected a cycle sooner than
// waiting for it to reach an execute unit.
type DecodeUnit struct {
	in  *Buffer[instr.MacroOp]
	out *Buffer[instr.Uop]

	deque []instr.Uop

	shouldFlush  bool
	flushAddress uint64

	registry        *stats.Registry
	statEarlyFlush  stats.Counter
}

// NewDecodeUnit builds a DecodeUnit reading macro-ops from in and writing
// uops to out.
func NewDecodeUnit(in *Buffer[instr.MacroOp], out *Buffer[instr.Uop], registry *stats.Registry) *DecodeUnit {
	return &DecodeUnit{
		in:             in,
		out:            out,
		registry:       registry,
		statEarlyFlush: registry.Register("decode.earlyFlushes"),
	}
}

// ShouldFlush reports whether decode detected an early misprediction this
// cycle. The reorder buffer checks this once per cycle and, if true, reads
// FlushAddress and initiates a flush.
func (d *DecodeUnit) ShouldFlush() bool {
	return d.shouldFlush
}

// FlushAddress returns the corrected fetch target recorded by the most
// recent early-misprediction detection.
func (d *DecodeUnit) FlushAddress() uint64 {
	return d.flushAddress
}

// PurgeFlushed clears any uops still queued internally, called after
// the core has acted on a flush (from decode's own detection or from a
// later stage).
func (d *DecodeUnit) PurgeFlushed() {
	d.deque = nil
	d.shouldFlush = false
}

// Tick implements one cycle of decode: drain queued macro-ops into the
// internal deque, then drain uops from the deque into the output buffer's
// tail, checking each for an early misprediction as it is emitted.
func (d *DecodeUnit) Tick() {
	d.shouldFlush = false

	for _, macro := range d.in.HeadSlots() {
		if macro.Uops == nil {
			continue
		}
		d.deque = append(d.deque, macro.Uops...)
	}

	if d.out.Stalled() {
		return
	}

	tail := d.out.TailSlots()
	for i := range tail {
		if len(d.deque) == 0 {
			break
		}
		u := d.deque[0]
		d.deque = d.deque[1:]
		tail[i] = u

		if target, mispredicted, ok := u.CheckEarlyBranchMisprediction(); ok && mispredicted {
			d.shouldFlush = true
			d.flushAddress = target
			d.registry.Inc(d.statEarlyFlush)
			d.deque = nil
			break
		}
	}
}
