package instr

import "github.com/mutalibmohammed/SimEng/register"

// Base implements the bookkeeping every concrete Uop needs — identity,
// operand supply, rename-once, exception latching, branch bookkeeping — so
// an ISA collaborator only has to implement OpClass, Execute, GetResults,
// GenerateAddresses, SupportedPorts and the Is* predicates on top of it.
type Base struct {
	InstructionIDField uint64
	SequenceIDField    uint64
	PCField            uint64

	SrcRegs  []register.Register
	DstRegs  []register.Register
	operands []register.Value
	ready    []bool
	renamed  bool

	memTargets []MemoryTarget
	memData    []register.Value

	prediction    Prediction
	branchTaken   bool
	branchTarget  uint64
	branchKnown   bool
	nextSeqPC     uint64

	exception Exception

	executed  bool
	canCommit bool
	flushed   bool
}

// NewBase constructs a Base with src/dst register slices already sized for
// operand tracking. Call this from a concrete Uop's constructor.
func NewBase(instructionID, sequenceID, pc uint64, src, dst []register.Register) Base {
	return Base{
		InstructionIDField: instructionID,
		SequenceIDField:    sequenceID,
		PCField:            pc,
		SrcRegs:            src,
		DstRegs:            dst,
		operands:           make([]register.Value, len(src)),
		ready:              make([]bool, len(src)),
	}
}

// ID implements Uop.
func (b *Base) ID() (uint64, uint64) { return b.InstructionIDField, b.SequenceIDField }

// PC implements Uop.
func (b *Base) PC() uint64 { return b.PCField }

// Sources implements Uop.
func (b *Base) Sources() []register.Register { return b.SrcRegs }

// Destinations implements Uop.
func (b *Base) Destinations() []register.Register { return b.DstRegs }

// Rename implements Uop. It panics if called a second time on the same uop.
func (b *Base) Rename(sources, destinations []register.Register) {
	if b.renamed {
		panic("instr: Rename called twice on the same uop")
	}
	b.renamed = true
	b.SrcRegs = sources
	b.DstRegs = destinations
}

// SupplyOperand implements Uop.
func (b *Base) SupplyOperand(i int, v register.Value) {
	b.operands[i] = v
	b.ready[i] = true
}

// IsOperandReady implements Uop.
func (b *Base) IsOperandReady(i int) bool { return b.ready[i] }

// CanExecute implements Uop.
func (b *Base) CanExecute() bool {
	for _, r := range b.ready {
		if !r {
			return false
		}
	}
	return true
}

// Operand returns the supplied value for source i. Intended for use by the
// embedding type's Execute implementation.
func (b *Base) Operand(i int) register.Value { return b.operands[i] }

// SetMemoryTargets installs the memory targets GenerateAddresses computed,
// sizing the data-delivery slice to match.
func (b *Base) SetMemoryTargets(targets []MemoryTarget) {
	b.memTargets = targets
	b.memData = make([]register.Value, len(targets))
}

// MemoryTargets returns the targets previously installed.
func (b *Base) MemoryTargets() []MemoryTarget { return b.memTargets }

// SupplyMemoryData implements Uop.
func (b *Base) SupplyMemoryData(i int, v register.Value) {
	if i < len(b.memData) {
		b.memData[i] = v
	}
}

// MemoryData returns the i'th delivered memory payload.
func (b *Base) MemoryData(i int) register.Value { return b.memData[i] }

// BranchPrediction implements Uop.
func (b *Base) BranchPrediction() Prediction { return b.prediction }

// SetBranchPrediction implements Uop.
func (b *Base) SetBranchPrediction(p Prediction) { b.prediction = p }

// ResolveBranch implements Uop.
func (b *Base) ResolveBranch(taken bool, target uint64) {
	b.branchTaken = taken
	b.branchTarget = target
	b.branchKnown = true
}

// WasBranchMispredicted implements Uop.
func (b *Base) WasBranchMispredicted() bool {
	if !b.branchKnown {
		return false
	}
	if b.branchTaken != b.prediction.Taken {
		return true
	}
	if b.branchTaken && b.prediction.TargetKnown && b.prediction.Target != b.branchTarget {
		return true
	}
	return false
}

// BranchTarget implements Uop.
func (b *Base) BranchTarget() uint64 { return b.branchTarget }

// ResolvedTaken implements Uop.
func (b *Base) ResolvedTaken() bool { return b.branchTaken }

// SetNextSequentialPC records the fall-through address for this uop's
// macro-op. ISA collaborators call this from their constructor.
func (b *Base) SetNextSequentialPC(pc uint64) { b.nextSeqPC = pc }

// NextSequentialPC implements Uop.
func (b *Base) NextSequentialPC() uint64 { return b.nextSeqPC }

// CheckEarlyBranchMisprediction gives the default "cannot tell" answer.
// Concrete ISAs override this for direct branches whose target is a fixed
// displacement known at decode time.
func (b *Base) CheckEarlyBranchMisprediction() (uint64, bool, bool) {
	return 0, false, false
}

// Exception implements Uop.
func (b *Base) Exception() Exception { return b.exception }

// SetException implements Uop. The first fault sticks.
func (b *Base) SetException(e Exception) {
	if b.exception == ExceptionNone {
		b.exception = e
	}
}

// IsMicroOp and IsLastMicroOp default to the common case of a macro-op that
// decodes to exactly one uop. ISA collaborators emitting micro-op sequences
// override both.
func (b *Base) IsMicroOp() bool     { return false }
func (b *Base) IsLastMicroOp() bool { return true }

// Executed implements Uop.
func (b *Base) Executed() bool { return b.executed }

// SetExecuted implements Uop.
func (b *Base) SetExecuted() { b.executed = true }

// CanCommit implements Uop.
func (b *Base) CanCommit() bool { return b.canCommit }

// SetCanCommit implements Uop.
func (b *Base) SetCanCommit() { b.canCommit = true }

// Flushed implements Uop.
func (b *Base) Flushed() bool { return b.flushed }

// SetFlushed implements Uop.
func (b *Base) SetFlushed() { b.flushed = true }
