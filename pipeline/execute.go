package pipeline

import (
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/timing/latency"
)

// execEntry tracks one uop travelling through an execute unit's latency
// pipe.
type execEntry struct {
	u          instr.Uop
	cyclesLeft uint64
}

// ExecuteUnit models one issue port's execution pipe: a uop spends
// GetLatency(class) cycles in flight, at the end of which Execute runs
// once. Address generation and branch resolution happen inside the ISA's
// Execute implementation; this unit only drives the timing.
type ExecuteUnit struct {
	in  *Buffer[instr.Uop]
	out *Buffer[instr.Uop]

	table *latency.Table

	pending []*execEntry
	ready   []instr.Uop
}

// NewExecuteUnit builds an ExecuteUnit reading uops from in, timing them
// against table, and writing finished uops to out.
func NewExecuteUnit(in, out *Buffer[instr.Uop], table *latency.Table) *ExecuteUnit {
	return &ExecuteUnit{in: in, out: out, table: table}
}

// PurgeFlushed drops flushed uops from the in-flight pipe and the ready
// queue; their latency countdown no longer matters.
func (e *ExecuteUnit) PurgeFlushed() {
	pending := e.pending[:0]
	for _, p := range e.pending {
		if !p.u.Flushed() {
			pending = append(pending, p)
		}
	}
	e.pending = pending

	ready := e.ready[:0]
	for _, u := range e.ready {
		if !u.Flushed() {
			ready = append(ready, u)
		}
	}
	e.ready = ready
}

// Tick implements one cycle: admit newly issued uops into the latency
// pipe, advance every in-flight entry, execute those that finish this
// cycle, then drain finished uops into the output buffer.
func (e *ExecuteUnit) Tick() {
	for _, u := range e.in.HeadSlots() {
		if u == nil {
			continue
		}
		lat := e.table.GetLatency(u.OpClass())
		if lat == 0 {
			lat = 1
		}
		e.pending = append(e.pending, &execEntry{u: u, cyclesLeft: lat})
	}

	var stillPending []*execEntry
	for _, p := range e.pending {
		if p.u.Flushed() {
			continue
		}
		p.cyclesLeft--
		if p.cyclesLeft == 0 {
			p.u.Execute()
			p.u.SetExecuted()
			e.ready = append(e.ready, p.u)
		} else {
			stillPending = append(stillPending, p)
		}
	}
	e.pending = stillPending

	if e.out.Stalled() {
		return
	}
	tail := e.out.TailSlots()
	filled := 0
	for filled < len(tail) && len(e.ready) > 0 {
		tail[filled] = e.ready[0]
		e.ready = e.ready[1:]
		filled++
	}
}
