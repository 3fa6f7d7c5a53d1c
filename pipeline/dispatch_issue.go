package pipeline

import (
	"fmt"

	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/register"
	"github.com/mutalibmohammed/SimEng/rename"
	"github.com/mutalibmohammed/SimEng/stats"
)

// inFlight tracks one dispatched uop waiting on some number of operands
// before it can join its port's ready queue.
type inFlight struct {
	uop     instr.Uop
	port    instr.Port
	pending int
}

// matrixEntry is one dependency-matrix registration: when the register it
// is keyed under is forwarded, operandIndex of parent.uop is supplied.
type matrixEntry struct {
	parent       *inFlight
	operandIndex int
}

// portState is the per-port dispatch/issue bookkeeping: its ready FIFO,
// current reservation-station occupancy, and the buffer feeding its
// execute unit.
type portState struct {
	port      instr.Port
	name      string
	out       *Buffer[instr.Uop]
	ready     []instr.Uop
	occupants int

	statPossible         stats.Counter
	statActual           stats.Counter
	statFrontendSlot     stats.Counter
	statBackendSlot      stats.Counter
	statPortBusySlot     stats.Counter
}

// reservationStation groups the ports it feeds and enforces a shared size
// and per-cycle dispatch-rate limit across them.
type reservationStation struct {
	size                 int
	dispatchRate         int
	dispatchedThisCycle  int
	currentSize          int
	ports                []*portState
}

// DispatchIssueUnit is the scheduling core: it dispatches renamed uops into
// reservation stations keyed by issue port, tracks unready operands in a
// dependency matrix, and issues ready uops to their execute unit once the
// downstream buffer can accept them.
type DispatchIssueUnit struct {
	in *Buffer[instr.Uop]

	allocator  PortAllocator
	scoreboard *rename.Scoreboard
	regfile    *rename.RegisterFileSet

	ports          []*portState
	portToRS       map[instr.Port]*reservationStation
	portToState    map[instr.Port]*portState
	orderedPorts   []instr.Port

	matrix   map[register.Register][]matrixEntry
	inFlight map[instr.Uop]*inFlight

	deque []instr.Uop

	registry             *stats.Registry
	statRSStalls         stats.Counter
	statFrontendStalls   stats.Counter
	statBackendStalls    stats.Counter
	statPortBusyStalls   stats.Counter
}

// NewDispatchIssueUnit builds a DispatchIssueUnit from cfg's port and
// reservation-station layout. outs must be in the same order as
// cfg.Ports, one execute-unit input buffer per port.
func NewDispatchIssueUnit(in *Buffer[instr.Uop], cfg *config.Settings, outs []*Buffer[instr.Uop], allocator PortAllocator, scoreboard *rename.Scoreboard, regfile *rename.RegisterFileSet, registry *stats.Registry) (*DispatchIssueUnit, error) {
	if len(outs) != len(cfg.Ports) {
		return nil, fmt.Errorf("pipeline: dispatch/issue needs %d execute buffers, got %d", len(cfg.Ports), len(outs))
	}

	d := &DispatchIssueUnit{
		in:                 in,
		allocator:          allocator,
		scoreboard:         scoreboard,
		regfile:            regfile,
		portToRS:           make(map[instr.Port]*reservationStation),
		portToState:        make(map[instr.Port]*portState),
		matrix:             make(map[register.Register][]matrixEntry),
		inFlight:           make(map[instr.Uop]*inFlight),
		registry:           registry,
		statRSStalls:       registry.Register("dispatch.rsStalls"),
		statFrontendStalls: registry.Register("issue.frontendStalls"),
		statBackendStalls:  registry.Register("issue.backendStalls"),
		statPortBusyStalls: registry.Register("issue.portBusyStalls"),
	}

	states := make([]*portState, len(cfg.Ports))
	for i, p := range cfg.Ports {
		port := instr.Port(i)
		ps := &portState{
			port:             port,
			name:             p.Name,
			out:              outs[i],
			statPossible:     registry.Register("issue.possibleIssues." + p.Name),
			statActual:       registry.Register("issue.actualIssues." + p.Name),
			statFrontendSlot: registry.Register("issue.frontendSlotStalls." + p.Name),
			statBackendSlot:  registry.Register("issue.backendSlotStalls." + p.Name),
			statPortBusySlot: registry.Register("issue.portBusySlotStalls." + p.Name),
		}
		states[i] = ps
		d.portToState[port] = ps
		d.orderedPorts = append(d.orderedPorts, port)
	}
	d.ports = states

	for _, rsCfg := range cfg.ReservationStations {
		rs := &reservationStation{size: rsCfg.Size, dispatchRate: rsCfg.DispatchRate}
		for _, idx := range rsCfg.Ports {
			if idx < 0 || idx >= len(states) {
				return nil, fmt.Errorf("pipeline: reservation station references unknown port %d", idx)
			}
			ps := states[idx]
			rs.ports = append(rs.ports, ps)
			d.portToRS[ps.port] = rs
		}
	}

	return d, nil
}

// PurgeFlushed drops flushed uops from every port's ready queue and from
// the dependency matrix, releasing their port allocations exactly once.
func (d *DispatchIssueUnit) PurgeFlushed() {
	charged := make(map[instr.Uop]bool)

	for _, ps := range d.ports {
		rs := d.portToRS[ps.port]
		kept := ps.ready[:0]
		for _, u := range ps.ready {
			if u.Flushed() {
				d.chargeFlushed(u, ps, rs, charged)
				continue
			}
			kept = append(kept, u)
		}
		ps.ready = kept
	}

	for reg, entries := range d.matrix {
		kept := entries[:0]
		for _, e := range entries {
			u := e.parent.uop
			if u.Flushed() {
				ps := d.portToState[e.parent.port]
				rs := d.portToRS[e.parent.port]
				d.chargeFlushed(u, ps, rs, charged)
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(d.matrix, reg)
		} else {
			d.matrix[reg] = kept
		}
	}

	d.deque = nil
}

func (d *DispatchIssueUnit) chargeFlushed(u instr.Uop, ps *portState, rs *reservationStation, charged map[instr.Uop]bool) {
	if charged[u] {
		return
	}
	charged[u] = true
	d.allocator.Deallocate(ps.port)
	if ps.occupants > 0 {
		ps.occupants--
	}
	if rs != nil && rs.currentSize > 0 {
		rs.currentSize--
	}
	delete(d.inFlight, u)
}

// Tick implements one cycle: drain rename's output into the internal
// deque, dispatch as many as reservation-station capacity allows, then
// issue from every port's ready queue.
func (d *DispatchIssueUnit) Tick() {
	for _, u := range d.in.HeadSlots() {
		if u == nil {
			continue
		}
		d.deque = append(d.deque, u)
	}

	for _, rs := range d.uniqueReservationStations() {
		rs.dispatchedThisCycle = 0
	}

	d.dispatch()
	d.issue()
}

func (d *DispatchIssueUnit) uniqueReservationStations() []*reservationStation {
	seen := map[*reservationStation]bool{}
	var out []*reservationStation
	for _, rs := range d.portToRS {
		if !seen[rs] {
			seen[rs] = true
			out = append(out, rs)
		}
	}
	return out
}

// dispatch implements the per-cycle dispatch pass: it moves uops from the
// deque into their port's reservation station until a station is full or
// has reached its dispatch rate for this cycle.
func (d *DispatchIssueUnit) dispatch() {
	for len(d.deque) > 0 {
		u := d.deque[0]
		if u.Flushed() {
			d.deque = d.deque[1:]
			continue
		}

		if u.Exception() != instr.ExceptionNone {
			u.SetCanCommit()
			d.deque = d.deque[1:]
			continue
		}

		port := d.allocator.Allocate(u.SupportedPorts())
		rs := d.portToRS[port]
		ps := d.portToState[port]

		if rs.currentSize >= rs.size || rs.dispatchedThisCycle >= rs.dispatchRate {
			d.allocator.Deallocate(port)
			d.registry.Inc(d.statRSStalls)
			return
		}

		d.deque = d.deque[1:]
		rs.currentSize++
		rs.dispatchedThisCycle++
		ps.occupants++

		entry := &inFlight{uop: u, port: port}
		sources := u.Sources()
		for i, s := range sources {
			if s.IsZero() || u.IsOperandReady(i) {
				continue
			}
			if d.scoreboard.IsReady(s.Type, s.Tag) {
				u.SupplyOperand(i, d.regfile.Read(s.Type, s.Tag))
				continue
			}
			entry.pending++
			d.matrix[s] = append(d.matrix[s], matrixEntry{parent: entry, operandIndex: i})
		}

		for _, dst := range u.Destinations() {
			if !dst.IsZero() {
				d.scoreboard.Clear(dst.Type, dst.Tag)
			}
		}

		d.inFlight[u] = entry
		if entry.pending == 0 {
			ps.ready = append(ps.ready, u)
		}
	}
}

// issue implements the per-cycle issue pass: one attempt per port, in
// configured order.
func (d *DispatchIssueUnit) issue() {
	anyIssued := false
	anyOccupied := false

	for _, p := range d.orderedPorts {
		ps := d.portToState[p]
		if ps.occupants > 0 {
			anyOccupied = true
		}

		if ps.out.Stalled() {
			if len(ps.ready) > 0 {
				d.registry.Inc(d.statPortBusyStalls)
				d.registry.Inc(ps.statPortBusySlot)
			}
			continue
		}

		if len(ps.ready) > 0 {
			d.registry.Inc(ps.statPossible)
			u := ps.ready[0]
			ps.ready = ps.ready[1:]
			d.allocator.Issued(p)
			ps.occupants--
			if d.portToRS[p].currentSize > 0 {
				d.portToRS[p].currentSize--
			}
			delete(d.inFlight, u)

			slot := ps.out.TailSlots()
			for i := range slot {
				if slot[i] == nil {
					slot[i] = u
					break
				}
			}
			d.registry.Inc(ps.statActual)
			anyIssued = true
			continue
		}

		if ps.occupants > 0 {
			d.registry.Inc(ps.statBackendSlot)
		} else {
			d.registry.Inc(ps.statFrontendSlot)
		}
	}

	if !anyIssued {
		if anyOccupied {
			d.registry.Inc(d.statBackendStalls)
		} else {
			d.registry.Inc(d.statFrontendStalls)
		}
	}
}

// ForwardOperands supplies each value to every dependent uop waiting on
// the corresponding register, promoting any that become executable to
// their port's ready queue, then clears the matrix entries consumed.
func (d *DispatchIssueUnit) ForwardOperands(registers []register.Register, values []register.Value) {
	for i, reg := range registers {
		if reg.IsZero() {
			continue
		}
		d.scoreboard.Set(reg.Type, reg.Tag)
		d.regfile.Write(reg.Type, reg.Tag, values[i])

		entries := d.matrix[reg]
		for _, e := range entries {
			e.parent.uop.SupplyOperand(e.operandIndex, values[i])
			e.parent.pending--
			if e.parent.pending == 0 {
				ps := d.portToState[e.parent.port]
				ps.ready = append(ps.ready, e.parent.uop)
			}
		}
		delete(d.matrix, reg)
	}
}
