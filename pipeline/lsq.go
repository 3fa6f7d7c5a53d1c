package pipeline

import (
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/memio"
	"github.com/mutalibmohammed/SimEng/register"
	"github.com/mutalibmohammed/SimEng/stats"
)

// inFlightStore records a store that has computed its address(es) and data
// but may not yet have been written through the memory interface, kept
// around for store-to-load forwarding and memory-ordering checks.
type inFlightStore struct {
	u       instr.Uop
	targets []instr.MemoryTarget
	data    []register.Value
}

// completedLoad records a load that has already delivered its value
// speculatively (before commit), so a later-discovered overlapping store
// can be recognized as a memory-ordering violation.
type completedLoad struct {
	u       instr.Uop
	targets []instr.MemoryTarget
}

// pendingLoad tracks one outstanding memory request for a load, keyed by
// the request id issued to the memory interface.
type pendingLoad struct {
	u           instr.Uop
	targetIndex int
}

// LoadStoreQueue is a combined load/store queue sitting behind the LOAD and
// STORE issue ports: it turns a ready uop's computed address(es) into
// requests against memio.Interface, forwards store data directly to a
// dependent younger load when possible, and detects memory-ordering
// violations when a store is discovered to overlap a load that already
// delivered a speculative value.
type LoadStoreQueue struct {
	loadIn  *Buffer[instr.Uop]
	storeIn *Buffer[instr.Uop]
	out     *Buffer[instr.Uop]

	dmem memio.Interface

	nextRequestID uint64
	pendingLoads  map[uint64]pendingLoad
	outstanding   map[instr.Uop]int
	loadTargets   map[instr.Uop][]instr.MemoryTarget

	inFlightStores []*inFlightStore
	completedLoads []completedLoad

	ready []instr.Uop

	violation      bool
	violationUopID uint64
	violationSeq   uint64
	violationPC    uint64

	registry       *stats.Registry
	statForwards   stats.Counter
	statViolations stats.Counter
}

// NewLoadStoreQueue builds a LoadStoreQueue reading loads from loadIn and
// stores from storeIn, issuing completed accesses to out, against dmem.
func NewLoadStoreQueue(loadIn, storeIn, out *Buffer[instr.Uop], dmem memio.Interface, registry *stats.Registry) *LoadStoreQueue {
	return &LoadStoreQueue{
		loadIn:         loadIn,
		storeIn:        storeIn,
		out:            out,
		dmem:           dmem,
		pendingLoads:   make(map[uint64]pendingLoad),
		outstanding:    make(map[instr.Uop]int),
		loadTargets:    make(map[instr.Uop][]instr.MemoryTarget),
		registry:       registry,
		statForwards:   registry.Register("lsq.storeForwards"),
		statViolations: registry.Register("lsq.orderingViolations"),
	}
}

// ViolationDetected reports whether a memory-ordering violation was found
// this cycle: the (ID, sequence) of the offending load — which must itself
// be flushed along with everything younger — and the address fetch should
// resume from to re-execute it.
func (q *LoadStoreQueue) ViolationDetected() (id, seq, refetchPC uint64, ok bool) {
	return q.violationUopID, q.violationSeq, q.violationPC, q.violation
}

// PurgeFlushed drops flushed entries from every internal queue.
func (q *LoadStoreQueue) PurgeFlushed() {
	stores := q.inFlightStores[:0]
	for _, s := range q.inFlightStores {
		if !s.u.Flushed() {
			stores = append(stores, s)
		}
	}
	q.inFlightStores = stores

	loads := q.completedLoads[:0]
	for _, l := range q.completedLoads {
		if !l.u.Flushed() {
			loads = append(loads, l)
		}
	}
	q.completedLoads = loads

	ready := q.ready[:0]
	for _, u := range q.ready {
		if !u.Flushed() {
			ready = append(ready, u)
		}
	}
	q.ready = ready

	for u := range q.outstanding {
		if u.Flushed() {
			delete(q.outstanding, u)
			delete(q.loadTargets, u)
		}
	}

	q.violation = false
}

func overlaps(a, b instr.MemoryTarget) bool {
	aEnd := a.Address + uint64(a.Size)
	bEnd := b.Address + uint64(b.Size)
	return a.Address < bEnd && b.Address < aEnd
}

// Tick implements one cycle: service memory completions, admit newly
// issued loads and stores, and drain finished accesses into the output
// buffer.
func (q *LoadStoreQueue) Tick() {
	q.violation = false

	for _, r := range q.dmem.GetCompletedReads() {
		pl, ok := q.pendingLoads[r.RequestID]
		if !ok {
			continue
		}
		delete(q.pendingLoads, r.RequestID)
		pl.u.SupplyMemoryData(pl.targetIndex, r.Value)
		if pl.u.Exception() == instr.ExceptionNone && !r.Value.Valid() {
			pl.u.SetException(instr.ExceptionPageFault)
		}
		q.outstanding[pl.u]--
		if q.outstanding[pl.u] <= 0 {
			delete(q.outstanding, pl.u)
			q.finishLoad(pl.u)
		}
	}
	q.dmem.ClearCompletedReads()

	for _, u := range q.storeIn.HeadSlots() {
		if u != nil {
			q.admitStore(u)
		}
	}
	for _, u := range q.loadIn.HeadSlots() {
		if u != nil {
			q.admitLoad(u)
		}
	}

	if q.out.Stalled() {
		return
	}
	tail := q.out.TailSlots()
	filled := 0
	for filled < len(tail) && len(q.ready) > 0 {
		tail[filled] = q.ready[0]
		q.ready = q.ready[1:]
		filled++
	}
}

// admitStore computes a store's address(es) and data, checks for a
// memory-ordering violation against an already-completed load, forwards
// its data to dmem, and records it as in-flight for later loads to
// forward from. A store has no register destination, so its data to write
// is read off GetResults in GenerateAddresses order.
func (q *LoadStoreQueue) admitStore(u instr.Uop) {
	u.Execute()
	u.SetExecuted()

	targets := u.GenerateAddresses()
	results := u.GetResults()

	for i, t := range targets {
		for _, l := range q.completedLoads {
			if !instr.Less(u, l.u) {
				continue // store is not older than the load: ordinary program order, no hazard
			}
			for _, lt := range l.targets {
				if overlaps(t, lt) {
					q.violation = true
					id, seq := l.u.ID()
					q.violationUopID, q.violationSeq = id, seq
					q.violationPC = l.u.PC()
					q.registry.Inc(q.statViolations)
				}
			}
		}
		var data register.Value
		if i < len(results) {
			data = results[i]
		}
		q.dmem.RequestWrite(memio.Target{Address: t.Address, Size: t.Size}, data)
	}

	q.inFlightStores = append(q.inFlightStores, &inFlightStore{u: u, targets: targets, data: results})
	q.ready = append(q.ready, u)
}

// admitLoad computes a load's address(es), attempts store-to-load
// forwarding per target, and otherwise issues memory reads for the rest.
func (q *LoadStoreQueue) admitLoad(u instr.Uop) {
	targets := u.GenerateAddresses()
	outstanding := 0

	for i, t := range targets {
		if forwarded, v := q.forwardFrom(t); forwarded {
			q.registry.Inc(q.statForwards)
			u.SupplyMemoryData(i, v)
			continue
		}
		id := q.nextRequestID
		q.nextRequestID++
		q.pendingLoads[id] = pendingLoad{u: u, targetIndex: i}
		q.dmem.RequestRead(memio.Target{Address: t.Address, Size: t.Size}, id)
		outstanding++
	}

	q.loadTargets[u] = targets
	if outstanding == 0 {
		q.finishLoad(u)
	} else {
		q.outstanding[u] = outstanding
	}
}

func (q *LoadStoreQueue) finishLoad(u instr.Uop) {
	u.Execute()
	u.SetExecuted()
	targets := q.loadTargets[u]
	delete(q.loadTargets, u)
	q.completedLoads = append(q.completedLoads, completedLoad{u: u, targets: targets})
	q.ready = append(q.ready, u)
}

// forwardFrom searches the in-flight store list, most recent first, for a
// store whose range fully covers t, returning its data if found.
func (q *LoadStoreQueue) forwardFrom(t instr.MemoryTarget) (bool, register.Value) {
	for i := len(q.inFlightStores) - 1; i >= 0; i-- {
		s := q.inFlightStores[i]
		for j, st := range s.targets {
			if st.Address <= t.Address && st.Address+uint64(st.Size) >= t.Address+uint64(t.Size) {
				if j < len(s.data) {
					return true, s.data[j]
				}
			}
		}
	}
	return false, register.Value{}
}
