// Package instr defines the capability contract that every micro-op (uop)
// flowing through the out-of-order core must satisfy. Concrete instruction
// sets live outside this package and outside the core itself — see the
// arch package for the one ISA wired up in this repository.
package instr

import "github.com/mutalibmohammed/SimEng/register"

// Exception enumerates the fault conditions a uop may carry to the reorder
// buffer. The zero value means no exception.
type Exception uint8

const (
	// ExceptionNone means the uop completed without fault.
	ExceptionNone Exception = iota
	// ExceptionDecodeFail means predecode could not produce a valid uop.
	ExceptionDecodeFail
	// ExceptionNotImplemented means the ISA collaborator has no semantics
	// for this operation.
	ExceptionNotImplemented
	// ExceptionMisaligned means a memory access violated ISA alignment rules.
	ExceptionMisaligned
	// ExceptionPageFault means a memory access fell outside of mapped
	// memory, including completions delivered with an invalid Value.
	ExceptionPageFault
	// ExceptionSyscall means the uop requests a system call; the core
	// routes it to the architecture's ExceptionHandler.
	ExceptionSyscall
)

// OpClass buckets uops for the purposes of latency lookup, independent of
// any concrete ISA's opcode encoding.
type OpClass uint8

// The set of op classes the shipped latency table understands. A concrete
// ISA implementation assigns one of these to every uop it emits.
const (
	ClassALU OpClass = iota
	ClassBranch
	ClassLoad
	ClassStore
	ClassMultiply
	ClassDivide
	ClassSyscall
	ClassSIMDInt
	ClassSIMDFloat
	ClassSIMDLoad
	ClassSIMDStore
)

// Port is an index into the core's configured issue ports (see
// config.Settings.Ports). Uops declare which ports they may issue on.
type Port int

// MacroOp is the output of predecode: one fetched instruction, possibly
// expanding into more than one Uop at decode time.
type MacroOp struct {
	// Address is the architectural address the macro-op was fetched from.
	Address uint64
	// Length is the size in bytes of the encoded instruction.
	Length uint64
	// Uops is the (possibly multi-entry) decode of this macro-op. Decode
	// further explodes each of these into the uops placed on the pipeline.
	Uops []Uop
}

// Uop is the capability interface every in-flight instruction must satisfy.
// A Uop is allocated once, at decode, and referenced by pointer from every
// stage buffer, reservation-station queue, and dependency-matrix entry it
// subsequently visits; ownership moves, it is never copied by value.
type Uop interface {
	// ID returns the (instructionID, sequenceID) pair establishing program
	// order. ID ordering is total: Less(a, b) compares instructionID first,
	// then sequenceID.
	ID() (instructionID, sequenceID uint64)

	// OpClass reports the latency-table bucket for this uop.
	OpClass() OpClass

	// Sources returns the uop's source registers in operand order. Entries
	// are architectural before Rename, physical after.
	Sources() []register.Register
	// Destinations returns the uop's destination registers. Entries are
	// architectural before Rename, physical after.
	Destinations() []register.Register

	// Rename rewrites Sources/Destinations in place to the physical tags
	// given, in the same order as Sources/Destinations returned them. It
	// must be called at most once per uop; a second call panics.
	Rename(sources, destinations []register.Register)

	// SupplyOperand stores the value for the i'th source operand, as
	// returned by Sources prior to Rename.
	SupplyOperand(i int, v register.Value)
	// IsOperandReady reports whether the i'th source has been supplied.
	IsOperandReady(i int) bool
	// CanExecute reports whether every source operand is ready.
	CanExecute() bool

	// SupportedPorts returns the set of issue ports this uop may be
	// dispatched to, as indices into config.Settings.Ports.
	SupportedPorts() []Port

	// GenerateAddresses returns the memory targets this uop will access.
	// Only meaningful if IsLoad or IsStore is true; called once operands
	// computing the address are ready.
	GenerateAddresses() []MemoryTarget
	// SupplyMemoryData delivers the byte payload for the i'th target
	// returned by GenerateAddresses (loads: data read back; stores: the
	// uop already knows its own store data and this is unused).
	SupplyMemoryData(i int, v register.Value)

	// Execute performs the uop's computation using previously supplied
	// operands and memory data, and records any resulting exception.
	Execute()
	// GetResults returns the values to be written to Destinations, valid
	// only after Execute.
	GetResults() []register.Value

	// IsLoad, IsStore, IsBranch, IsMicroOp, IsLastMicroOp report static and
	// decode-time facts about the uop's role in its macro-op.
	IsLoad() bool
	IsStore() bool
	IsBranch() bool
	IsMicroOp() bool
	IsLastMicroOp() bool

	// BranchPrediction returns the prediction recorded for this uop at
	// fetch time, and SetBranchPrediction installs one.
	BranchPrediction() Prediction
	SetBranchPrediction(p Prediction)
	// CheckEarlyBranchMisprediction reports, at decode time and without
	// executing, whether the uop is a direct branch whose target is
	// already known to differ from its recorded prediction. It returns
	// ok=false when the uop cannot determine this without executing.
	CheckEarlyBranchMisprediction() (target uint64, mispredicted, ok bool)
	// ResolveBranch records the actual outcome of a branch uop, normally
	// called from Execute.
	ResolveBranch(taken bool, target uint64)
	// WasBranchMispredicted compares the resolved outcome against the
	// recorded prediction. Only meaningful once ResolveBranch has run.
	WasBranchMispredicted() bool
	// BranchTarget returns the resolved branch target, valid after
	// ResolveBranch.
	BranchTarget() uint64
	// ResolvedTaken returns the actual taken/not-taken outcome recorded by
	// ResolveBranch.
	ResolvedTaken() bool
	// NextSequentialPC returns the address of the macro-op immediately
	// following this one — the fall-through target used to redirect fetch
	// when a predicted-taken branch resolves not-taken.
	NextSequentialPC() uint64

	// Exception returns the first exception raised against this uop, or
	// ExceptionNone.
	Exception() Exception
	// SetException records e, unless an exception is already recorded —
	// the first fault sticks.
	SetException(e Exception)

	// PC returns the architectural address of the macro-op this uop
	// belongs to, used to redirect fetch on flush/commit.
	PC() uint64

	// Executed reports whether Execute has run for this uop.
	Executed() bool
	// SetExecuted records that Execute has run.
	SetExecuted()
	// CanCommit reports whether this uop's result has been written back
	// and it is eligible for the reorder buffer to retire it.
	CanCommit() bool
	// SetCanCommit marks the uop retire-eligible.
	SetCanCommit()
	// Flushed reports whether this uop was discarded by a pipeline flush.
	Flushed() bool
	// SetFlushed marks the uop discarded; it must no longer be dispatched,
	// issued, executed, or committed.
	SetFlushed()
}

// MemoryTarget names a contiguous byte range a uop will read or write.
type MemoryTarget struct {
	Address uint64
	Size    int
}

// Prediction is what the branch predictor returns for one fetched address.
type Prediction struct {
	Taken       bool
	Target      uint64
	TargetKnown bool
}

// ExceptionHandler is the ISA collaborator the reorder buffer delegates to
// when the uop at its head carries an exception. It is a small ticked
// state machine rather than stack-unwinding: Begin starts handling one
// exception, Tick advances it one cycle and reports whether it has
// finished, and ResumePC/Fatal give the outcome once done.
type ExceptionHandler interface {
	Begin(u Uop)
	Tick() (done bool)
	ResumePC() uint64
	Fatal() bool
	// ExitCode is only meaningful when Fatal returns true: the guest
	// program's exit status.
	ExitCode() int64
}

// Predecoder is the ISA collaborator FetchUnit uses to turn fetched bytes
// into a MacroOp. Concrete instruction sets (see package arch) implement
// this; the core never interprets an opcode encoding itself.
type Predecoder interface {
	// InstructionSize returns the fixed size in bytes of one encoded
	// instruction for this ISA.
	InstructionSize() int
	// Predecode decodes the instructionSize bytes fetched from pc into a
	// MacroOp, assigning instructionID to its uop(s) in dispatch order.
	Predecode(pc uint64, bytes []byte, instructionID uint64) (MacroOp, error)
}

// Less reports whether a is older than b in program order: by
// instructionID first, then by sequenceID to order micro-ops expanded from
// the same macro-op.
func Less(a, b Uop) bool {
	aID, aSeq := a.ID()
	bID, bSeq := b.ID()
	if aID != bID {
		return aID < bID
	}
	return aSeq < bSeq
}
