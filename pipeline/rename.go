package pipeline

import (
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/register"
	"github.com/mutalibmohammed/SimEng/rename"
	"github.com/mutalibmohammed/SimEng/stats"
)

// RenameUnit consumes decoded uops, maps architectural source registers to
// their current physical tag, allocates fresh physical tags for
// destinations, and allocates a reorder-buffer slot for each uop. It stalls
// when the ROB has no free slot or the RAT is out of physical registers of
// a type the uop needs.
type RenameUnit struct {
	in  *Buffer[instr.Uop]
	out *Buffer[instr.Uop]

	rat        *rename.RAT
	scoreboard *rename.Scoreboard
	regfile    *rename.RegisterFileSet
	rob        *ReorderBuffer

	deque []instr.Uop

	registry      *stats.Registry
	statRobStalls stats.Counter
	statRatStalls stats.Counter
}

// NewRenameUnit builds a RenameUnit wired to rat/scoreboard for physical
// register bookkeeping and rob for in-flight tracking.
func NewRenameUnit(in, out *Buffer[instr.Uop], rat *rename.RAT, scoreboard *rename.Scoreboard, regfile *rename.RegisterFileSet, rob *ReorderBuffer, registry *stats.Registry) *RenameUnit {
	return &RenameUnit{
		in:            in,
		out:           out,
		rat:           rat,
		scoreboard:    scoreboard,
		regfile:       regfile,
		rob:           rob,
		registry:      registry,
		statRobStalls: registry.Register("rename.robStalls"),
		statRatStalls: registry.Register("rename.ratStalls"),
	}
}

// canAllocate reports whether the RAT currently has enough free physical
// registers, per type, to rename every destination of u.
func (r *RenameUnit) canAllocate(u instr.Uop) bool {
	need := map[register.Type]int{}
	for _, d := range u.Destinations() {
		if d.IsZero() {
			continue
		}
		need[d.Type]++
	}
	for t, n := range need {
		if r.rat.FreeCount(t) < n {
			return false
		}
	}
	return true
}

// rename performs the actual register rewrite for u, resolving sources
// against the current mapping and allocating fresh physical tags for
// destinations.
func (r *RenameUnit) rename(u instr.Uop) {
	srcArch := u.Sources()
	dstArch := u.Destinations()

	sources := make([]register.Register, len(srcArch))
	for i, s := range srcArch {
		if s.IsZero() {
			sources[i] = s
			continue
		}
		sources[i] = register.Register{Type: s.Type, Tag: r.rat.Lookup(s.Type, s.Tag)}
	}

	destinations := make([]register.Register, len(dstArch))
	for i, d := range dstArch {
		if d.IsZero() {
			destinations[i] = d
			continue
		}
		physical, ok := r.rat.Allocate(d.Type, d.Tag)
		if !ok {
			panic("pipeline: rename allocated a destination canAllocate already approved")
		}
		destinations[i] = register.Register{Type: d.Type, Tag: physical}
		r.scoreboard.Clear(d.Type, physical)
	}

	u.Rename(sources, destinations)

	for i, s := range sources {
		if s.IsZero() {
			u.SupplyOperand(i, register.Value{})
			continue
		}
		if r.scoreboard.IsReady(s.Type, s.Tag) {
			u.SupplyOperand(i, r.regfile.Read(s.Type, s.Tag))
		}
	}
}

// PurgeFlushed clears any uops still queued internally, called after the
// core has acted on a flush.
func (r *RenameUnit) PurgeFlushed() {
	r.deque = nil
}

// Tick implements one cycle of rename: drain queued uops into the internal
// deque, then for each queued uop, stall if the ROB is full or the RAT
// cannot allocate its destinations, otherwise rename it, allocate a
// reorder-buffer entry, and forward it to the output buffer.
func (r *RenameUnit) Tick() {
	for _, u := range r.in.HeadSlots() {
		if isNilUop(u) {
			continue
		}
		r.deque = append(r.deque, u)
	}

	if r.out.Stalled() {
		return
	}

	tail := r.out.TailSlots()
	written := 0
	for written < len(tail) && len(r.deque) > 0 {
		u := r.deque[0]
		if u.Flushed() {
			r.deque = r.deque[1:]
			continue
		}
		if r.rob.FreeSlots() == 0 {
			r.registry.Inc(r.statRobStalls)
			break
		}
		if !r.canAllocate(u) {
			r.registry.Inc(r.statRatStalls)
			break
		}

		r.deque = r.deque[1:]
		r.rename(u)
		r.rob.Allocate(u)
		tail[written] = u
		written++
	}
}

func isNilUop(u instr.Uop) bool {
	return u == nil
}
