package pipeline

import "github.com/mutalibmohammed/SimEng/instr"

// PortAllocator picks, for a uop dispatching to one of its SupportedPorts,
// which specific port it is assigned to, and is told when that allocation
// is later consumed (Issued) or abandoned (Deallocate, e.g. on flush).
type PortAllocator interface {
	Allocate(candidates []instr.Port) instr.Port
	Issued(p instr.Port)
	Deallocate(p instr.Port)
}

// BalancedPortAllocator assigns the candidate port with the fewest
// in-flight allocations, breaking ties by the lowest port index, so load
// spreads evenly across ports that can all service a given uop.
type BalancedPortAllocator struct {
	inFlight []int
}

// NewBalancedPortAllocator returns an allocator tracking numPorts ports.
func NewBalancedPortAllocator(numPorts int) *BalancedPortAllocator {
	return &BalancedPortAllocator{inFlight: make([]int, numPorts)}
}

// Allocate implements PortAllocator.
func (a *BalancedPortAllocator) Allocate(candidates []instr.Port) instr.Port {
	best := candidates[0]
	for _, p := range candidates[1:] {
		if a.inFlight[p] < a.inFlight[best] {
			best = p
		}
	}
	a.inFlight[best]++
	return best
}

// Issued implements PortAllocator: the allocation has been consumed by an
// issued uop and no longer counts toward load-balancing.
func (a *BalancedPortAllocator) Issued(p instr.Port) {
	if a.inFlight[p] > 0 {
		a.inFlight[p]--
	}
}

// Deallocate implements PortAllocator: an allocation is abandoned without
// ever issuing (the uop it belonged to was flushed).
func (a *BalancedPortAllocator) Deallocate(p instr.Port) {
	if a.inFlight[p] > 0 {
		a.inFlight[p]--
	}
}
