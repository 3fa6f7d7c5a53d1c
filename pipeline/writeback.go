package pipeline

import (
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/register"
)

// forwarder is what WritebackUnit needs from the scheduler: the ability to
// write a produced value into the physical register file and wake
// dependents waiting on it. DispatchIssueUnit implements this.
type forwarder interface {
	ForwardOperands(registers []register.Register, values []register.Value)
}

// WritebackUnit drains one execute unit's (or the load/store queue's)
// output buffer, forwards each finished uop's results to the scheduler —
// which writes the physical register file and wakes dependents — and
// marks the uop eligible for the reorder buffer to commit.
type WritebackUnit struct {
	in  *Buffer[instr.Uop]
	fwd forwarder
}

// NewWritebackUnit builds a WritebackUnit reading finished uops from in.
func NewWritebackUnit(in *Buffer[instr.Uop], fwd forwarder) *WritebackUnit {
	return &WritebackUnit{in: in, fwd: fwd}
}

// Tick implements one cycle: every non-empty head slot is a finished uop
// ready to retire its results.
func (w *WritebackUnit) Tick() {
	for _, u := range w.in.HeadSlots() {
		if u == nil || u.Flushed() {
			continue
		}

		dests := u.Destinations()
		results := u.GetResults()
		n := len(dests)
		if len(results) < n {
			n = len(results)
		}
		if n > 0 {
			w.fwd.ForwardOperands(dests[:n], results[:n])
		}

		u.SetCanCommit()
	}
}
