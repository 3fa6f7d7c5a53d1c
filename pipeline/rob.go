package pipeline

import (
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/predictor"
	"github.com/mutalibmohammed/SimEng/register"
	"github.com/mutalibmohammed/SimEng/rename"
	"github.com/mutalibmohammed/SimEng/stats"
)

// CommitResult reports what happened during one call to
// ReorderBuffer.Commit: the uops retired, and whether a flush is now
// required (a mispredicted branch committed, or the head carried an
// exception the handler has resolved).
type CommitResult struct {
	Committed     []instr.Uop
	FlushRequired bool
	FlushTarget   uint64
	// FlushKeepID/FlushKeepSeq identify the youngest uop to retain: every
	// uop with a strictly greater (ID, Seq) must be flushed.
	FlushKeepID  uint64
	FlushKeepSeq uint64
	Halt         bool
	ExitCode     int64
}

// ReorderBuffer retires uops in program order, detects branch
// mispredictions and exceptions at the commit point, and coordinates
// register-alias-table rollback with Flush.
type ReorderBuffer struct {
	capacity int
	entries  []instr.Uop

	rat       *rename.RAT
	pred      predictor.Predictor
	exHandler instr.ExceptionHandler

	registry        *stats.Registry
	statCommits     stats.Counter
	statFlushes     stats.Counter
	statExceptions  stats.Counter
}

// NewReorderBuffer builds an empty ReorderBuffer with the given capacity.
func NewReorderBuffer(capacity int, rat *rename.RAT, pred predictor.Predictor, exHandler instr.ExceptionHandler, registry *stats.Registry) *ReorderBuffer {
	return &ReorderBuffer{
		capacity:       capacity,
		rat:            rat,
		pred:           pred,
		exHandler:      exHandler,
		registry:       registry,
		statCommits:    registry.Register("rob.commits"),
		statFlushes:    registry.Register("rob.flushes"),
		statExceptions: registry.Register("rob.exceptions"),
	}
}

// FreeSlots returns how many more uops can be allocated before the ROB is
// full.
func (r *ReorderBuffer) FreeSlots() int {
	return r.capacity - len(r.entries)
}

// Allocate appends u to the ROB tail. The caller (RenameUnit) must have
// already checked FreeSlots.
func (r *ReorderBuffer) Allocate(u instr.Uop) {
	r.entries = append(r.entries, u)
}

// Len reports the number of uops currently tracked.
func (r *ReorderBuffer) Len() int {
	return len(r.entries)
}

// destRegTypes collects the distinct register types among u's
// destinations, in order, for RAT bookkeeping.
func destRegTypes(u instr.Uop) []register.Type {
	seen := map[register.Type]bool{}
	var out []register.Type
	for _, d := range u.Destinations() {
		if d.IsZero() || seen[d.Type] {
			continue
		}
		seen[d.Type] = true
		out = append(out, d.Type)
	}
	return out
}

// Commit retires up to width uops from the ROB head. It stops at the
// first uop that cannot yet commit, and also stops (after including it in
// Committed) at the first uop that requires a flush, since nothing after
// it should retire until the flush has been handled.
func (r *ReorderBuffer) Commit(width int) CommitResult {
	var result CommitResult

	for i := 0; i < width && len(r.entries) > 0; i++ {
		head := r.entries[0]

		if head.Flushed() {
			r.entries = r.entries[1:]
			continue
		}
		if !head.CanCommit() {
			break
		}

		r.entries = r.entries[1:]
		r.freeCommittedRegisters(head)
		result.Committed = append(result.Committed, head)
		r.registry.Inc(r.statCommits)

		if head.Exception() != instr.ExceptionNone {
			r.registry.Inc(r.statExceptions)
			r.exHandler.Begin(head)
			for !r.exHandler.Tick() {
			}
			result.FlushRequired = true
			result.FlushTarget = r.exHandler.ResumePC()
			result.FlushKeepID, result.FlushKeepSeq = head.ID()
			result.Halt = r.exHandler.Fatal()
			if result.Halt {
				result.ExitCode = r.exHandler.ExitCode()
			}
			r.registry.Inc(r.statFlushes)
			break
		}

		if head.IsBranch() {
			r.pred.Update(head.PC(), head.ResolvedTaken(), head.BranchTarget())
			if head.WasBranchMispredicted() {
				result.FlushRequired = true
				if head.ResolvedTaken() {
					result.FlushTarget = head.BranchTarget()
				} else {
					result.FlushTarget = head.NextSequentialPC()
				}
				result.FlushKeepID, result.FlushKeepSeq = head.ID()
				r.registry.Inc(r.statFlushes)
				break
			}
		}
	}

	return result
}

// freeCommittedRegisters drops the oldest RAT history entry for each
// register type head renamed into, returning the physical tag it replaced
// to the free list.
func (r *ReorderBuffer) freeCommittedRegisters(head instr.Uop) {
	for _, t := range destRegTypes(head) {
		if prev, ok := r.rat.CommitFree(t); ok {
			r.rat.Free(t, prev)
		}
	}
}

// Flush discards every ROB entry strictly younger than (keepID, keepSeq),
// from the tail backward, unwinding the RAT for each one so architectural
// state reflects only instructions up to and including the keep point.
func (r *ReorderBuffer) Flush(keepID, keepSeq uint64) {
	for len(r.entries) > 0 {
		last := r.entries[len(r.entries)-1]
		id, seq := last.ID()
		if id < keepID || (id == keepID && seq <= keepSeq) {
			break
		}
		last.SetFlushed()
		for _, t := range destRegTypes(last) {
			r.rat.Unwind(t)
		}
		r.entries = r.entries[:len(r.entries)-1]
	}
}

// FlushFrom discards fromID/fromSeq itself along with everything younger,
// used when the uop at that point (e.g. a load caught in a memory-ordering
// violation) must be re-executed rather than kept.
func (r *ReorderBuffer) FlushFrom(fromID, fromSeq uint64) {
	for len(r.entries) > 0 {
		last := r.entries[len(r.entries)-1]
		id, seq := last.ID()
		if id < fromID || (id == fromID && seq < fromSeq) {
			break
		}
		last.SetFlushed()
		for _, t := range destRegTypes(last) {
			r.rat.Unwind(t)
		}
		r.entries = r.entries[:len(r.entries)-1]
	}
}
