// Package latency provides the execution-latency lookup table used by the
// core's execute units. Latency is keyed by instr.OpClass rather than any
// concrete ISA's opcode encoding, so the table is reusable across the
// architecture collaborators wired into this repository.
package latency

import (
	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
)

// Table provides op-class latency lookups.
type Table struct {
	cfg config.Latencies
}

// NewTable builds a Table from the latencies section of a parsed Settings
// document.
func NewTable(cfg config.Latencies) *Table {
	return &Table{cfg: cfg}
}

// GetLatency returns the execution latency in cycles for the given op
// class. Variable-latency classes (divide) return their typical/minimum
// latency; callers needing the full range use GetMinLatency/GetMaxLatency.
func (t *Table) GetLatency(class instr.OpClass) uint64 {
	switch class {
	case instr.ClassALU:
		return t.cfg.ALU
	case instr.ClassBranch:
		return t.cfg.Branch
	case instr.ClassLoad:
		return t.cfg.Load
	case instr.ClassStore:
		return t.cfg.Store
	case instr.ClassMultiply:
		return t.cfg.Multiply
	case instr.ClassDivide:
		return t.cfg.DivideMin
	case instr.ClassSyscall:
		return t.cfg.Syscall
	case instr.ClassSIMDInt:
		return t.cfg.SIMDInt
	case instr.ClassSIMDFloat:
		return t.cfg.SIMDFloat
	case instr.ClassSIMDLoad:
		return t.cfg.SIMDLoad
	case instr.ClassSIMDStore:
		return t.cfg.SIMDStore
	default:
		return 1
	}
}

// GetMinLatency returns the minimum execution latency for class.
func (t *Table) GetMinLatency(class instr.OpClass) uint64 {
	if class == instr.ClassDivide {
		return t.cfg.DivideMin
	}
	return t.GetLatency(class)
}

// GetMaxLatency returns the maximum execution latency for class.
func (t *Table) GetMaxLatency(class instr.OpClass) uint64 {
	if class == instr.ClassDivide {
		return t.cfg.DivideMax
	}
	return t.GetLatency(class)
}

// BranchMispredictPenalty returns the extra cycles lost on a misprediction,
// on top of the branch's own execution latency.
func (t *Table) BranchMispredictPenalty() uint64 {
	return t.cfg.BranchMispredict
}

// IsMemoryOp reports whether class accesses memory.
func IsMemoryOp(class instr.OpClass) bool {
	switch class {
	case instr.ClassLoad, instr.ClassStore, instr.ClassSIMDLoad, instr.ClassSIMDStore:
		return true
	default:
		return false
	}
}

// IsLoadOp reports whether class is a load.
func IsLoadOp(class instr.OpClass) bool {
	return class == instr.ClassLoad || class == instr.ClassSIMDLoad
}

// IsStoreOp reports whether class is a store.
func IsStoreOp(class instr.OpClass) bool {
	return class == instr.ClassStore || class == instr.ClassSIMDStore
}

// IsBranchOp reports whether class is a branch.
func IsBranchOp(class instr.OpClass) bool {
	return class == instr.ClassBranch
}
