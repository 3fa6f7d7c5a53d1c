// Package rename implements the register renaming machinery: the physical
// register files, the register alias table mapping architectural to
// physical tags, and the scoreboard tracking which physical registers hold
// a committed value.
package rename

import "github.com/mutalibmohammed/SimEng/register"

// HistoryEntry records one rename. A flush uses it to roll the RAT back
// to its pre-rename state: architecturalTag now maps to previousPhysical
// again, and newPhysical returns to the free list. Commit uses it only to
// free previousPhysical.
type HistoryEntry struct {
	Type            register.Type
	Architectural   int
	PreviousPhysical int
	NewPhysical      int
}

// RAT is a per-type register alias table: an architectural-to-physical
// mapping, a free list of unmapped physical tags, and a history stack used
// to undo renames on flush.
type RAT struct {
	mapping  map[register.Type][]int
	freeList map[register.Type][]int
	history  map[register.Type][]HistoryEntry
}

// NewRAT builds a RAT where, for each type in counts, there are
// counts[type] physical registers: the first archCount are initially
// mapped one-to-one to architectural registers of the same index, and the
// remainder start on the free list.
func NewRAT(counts map[register.Type]int, archCounts map[register.Type]int) *RAT {
	r := &RAT{
		mapping:  make(map[register.Type][]int),
		freeList: make(map[register.Type][]int),
		history:  make(map[register.Type][]HistoryEntry),
	}
	for t, total := range counts {
		archCount := archCounts[t]
		mapping := make([]int, archCount)
		for i := range mapping {
			mapping[i] = i
		}
		free := make([]int, 0, total-archCount)
		for p := archCount; p < total; p++ {
			free = append(free, p)
		}
		r.mapping[t] = mapping
		r.freeList[t] = free
	}
	return r
}

// Lookup returns the current physical tag mapped to architectural register
// arch of the given type.
func (r *RAT) Lookup(t register.Type, arch int) int {
	return r.mapping[t][arch]
}

// Allocate pops one free physical tag for type t, maps arch to it, and
// pushes a HistoryEntry recording the previous mapping. It reports ok=false
// if the free list is empty.
func (r *RAT) Allocate(t register.Type, arch int) (physical int, ok bool) {
	free := r.freeList[t]
	if len(free) == 0 {
		return 0, false
	}
	physical = free[len(free)-1]
	r.freeList[t] = free[:len(free)-1]

	previous := r.mapping[t][arch]
	r.mapping[t][arch] = physical
	r.history[t] = append(r.history[t], HistoryEntry{
		Type:             t,
		Architectural:    arch,
		PreviousPhysical: previous,
		NewPhysical:      physical,
	})
	return physical, true
}

// Free returns physical register p of type t to the free list. Called at
// commit once the previous mapping it replaced is no longer needed.
func (r *RAT) Free(t register.Type, p int) {
	r.freeList[t] = append(r.freeList[t], p)
}

// FreeCount returns the number of unmapped physical registers of type t,
// used by rename to decide whether a uop's destinations can all allocate.
func (r *RAT) FreeCount(t register.Type) int {
	return len(r.freeList[t])
}

// PopHistory removes and returns the most recent rename history entry for
// type t, or ok=false if none remain. Used to unwind a flush.
func (r *RAT) PopHistory(t register.Type) (entry HistoryEntry, ok bool) {
	h := r.history[t]
	if len(h) == 0 {
		return HistoryEntry{}, false
	}
	entry = h[len(h)-1]
	r.history[t] = h[:len(h)-1]
	return entry, true
}

// HistoryLen reports how many undoable renames of type t are outstanding.
func (r *RAT) HistoryLen(t register.Type) int {
	return len(r.history[t])
}

// Unwind pops the most recent rename of type t and restores the RAT to
// its state before that rename: arch maps back to PreviousPhysical, and
// NewPhysical returns to the free list. Returns ok=false if there is
// nothing to unwind.
func (r *RAT) Unwind(t register.Type) (entry HistoryEntry, ok bool) {
	entry, ok = r.PopHistory(t)
	if !ok {
		return entry, false
	}
	r.mapping[t][entry.Architectural] = entry.PreviousPhysical
	r.freeList[t] = append(r.freeList[t], entry.NewPhysical)
	return entry, true
}

// CommitFree drops the oldest rename history entry for type t without
// unwinding the mapping, returning the previous physical tag it replaced
// so the caller can return it to the free list. Called at commit, once an
// instruction's new mapping has become permanent.
func (r *RAT) CommitFree(t register.Type) (previousPhysical int, ok bool) {
	h := r.history[t]
	if len(h) == 0 {
		return 0, false
	}
	entry := h[0]
	r.history[t] = h[1:]
	return entry.PreviousPhysical, true
}
