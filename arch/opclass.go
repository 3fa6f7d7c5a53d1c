package arch

import (
	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/insts"
)

// group names one of the instruction groups a port accepts, per
// config.Port.InstructionGroups. Every op this package decodes belongs to
// exactly one.
type group string

const (
	groupALU    group = "alu"
	groupBranch group = "branch"
	groupLoad   group = "load"
	groupStore  group = "store"
)

// classify reports the latency-table bucket and port group for op, and
// whether this package implements it at all. Load-store pair (LDP/STP),
// PC-relative literal loads, and every SIMD/floating-point opcode the
// decoder recognizes are left unimplemented: they decode successfully but
// this package has no execution semantics for them, so buildUop reports
// ExceptionNotImplemented instead of guessing at behavior it was never
// grounded on.
func classify(op insts.Op) (instr.OpClass, group, bool) {
	switch op {
	case insts.OpADD, insts.OpSUB, insts.OpAND, insts.OpORR, insts.OpEOR,
		insts.OpMOVZ, insts.OpMOVN, insts.OpMOVK, insts.OpADR, insts.OpADRP:
		return instr.ClassALU, groupALU, true
	case insts.OpB, insts.OpBL, insts.OpBCond, insts.OpBR, insts.OpBLR, insts.OpRET:
		return instr.ClassBranch, groupBranch, true
	case insts.OpLDR, insts.OpLDRB, insts.OpLDRSB, insts.OpLDRH, insts.OpLDRSH:
		return instr.ClassLoad, groupLoad, true
	case insts.OpSTR, insts.OpSTRB, insts.OpSTRH:
		return instr.ClassStore, groupStore, true
	case insts.OpSVC:
		return instr.ClassSyscall, groupALU, true
	default:
		return instr.ClassALU, groupALU, false
	}
}

// portTable maps each instruction group to the issue ports configured to
// accept it, built once from cfg so decode never has to walk cfg.Ports
// itself. A syscall uop rides the ALU group: the shipped configs give it no
// dedicated port, and an SVC is rare enough relative to arithmetic that
// sharing costs nothing.
type portTable struct {
	byGroup map[group][]instr.Port
}

func newPortTable(cfg *config.Settings) *portTable {
	t := &portTable{byGroup: make(map[group][]instr.Port)}
	for i, p := range cfg.Ports {
		for _, g := range p.InstructionGroups {
			gg := group(g)
			t.byGroup[gg] = append(t.byGroup[gg], instr.Port(i))
		}
	}
	return t
}

func (t *portTable) ports(g group) []instr.Port {
	return t.byGroup[g]
}
