package arch

import (
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/insts"
	"github.com/mutalibmohammed/SimEng/register"
)

// flagsReg is the single renamed register standing in for NZCV: a
// register.System value at architectural tag 0, renamed through the RAT
// exactly like any general-purpose destination so a flag-setting
// instruction rolls back on flush the same way a data write does.
var flagsReg = register.Register{Type: register.System, Tag: 0}

// reg maps an ARM64 register index to its architectural identity. Index 31
// is always the hard-wired zero register in this demo ISA: the real
// encoding's context-dependent XZR-vs-SP split (31 means the stack pointer
// in load/store base-register position, the zero register almost
// everywhere else) is not reproduced here.
func reg(index uint8) register.Register {
	if index == 31 {
		return register.Register{Type: register.General, Tag: register.ZeroTag}
	}
	return register.Register{Type: register.General, Tag: int(index)}
}

// packFlags folds the four condition bits into one byte, N at bit 3 down
// to V at bit 0, so they travel through a register.Value like any other
// result.
func packFlags(n, z, c, v bool) register.Value {
	var b byte
	if n {
		b |= 1 << 3
	}
	if z {
		b |= 1 << 2
	}
	if c {
		b |= 1 << 1
	}
	if v {
		b |= 1
	}
	return register.NewValue([]byte{b}, 1)
}

func unpackFlags(v register.Value) (n, z, c, cv bool) {
	b := byte(v.Uint64())
	return b&(1<<3) != 0, b&(1<<2) != 0, b&(1<<1) != 0, b&1 != 0
}

// checkCond evaluates an ARM64 condition code against packed NZCV flags,
// following the same case-by-case mapping as emu.BranchUnit.CheckCondition.
func checkCond(cond insts.Cond, n, z, c, v bool) bool {
	switch cond {
	case insts.CondEQ:
		return z
	case insts.CondNE:
		return !z
	case insts.CondCS:
		return c
	case insts.CondCC:
		return !c
	case insts.CondMI:
		return n
	case insts.CondPL:
		return !n
	case insts.CondVS:
		return v
	case insts.CondVC:
		return !v
	case insts.CondHI:
		return c && !z
	case insts.CondLS:
		return !c || z
	case insts.CondGE:
		return n == v
	case insts.CondLT:
		return n != v
	case insts.CondGT:
		return !z && n == v
	case insts.CondLE:
		return z || n != v
	default: // CondAL, CondNV
		return true
	}
}

// memSizeOf returns the access width in bytes and whether the loaded value
// must be sign-extended, for every load/store op this package implements.
func memSizeOf(op insts.Op) (size int, signExtend bool) {
	switch op {
	case insts.OpLDR, insts.OpSTR:
		return 0, false // resolved per Is64Bit at construction time
	case insts.OpLDRB, insts.OpSTRB:
		return 1, false
	case insts.OpLDRSB:
		return 1, true
	case insts.OpLDRH, insts.OpSTRH:
		return 2, false
	case insts.OpLDRSH:
		return 2, true
	}
	return 8, false
}

// Uop is the one concrete instr.Uop this repository ships: an ALU op, a
// branch, a load, a store, or a syscall, decoded from a single 32-bit
// instruction word.
type Uop struct {
	instr.Base

	op       insts.Op
	class    instr.OpClass
	ports    []instr.Port
	load     bool
	store    bool
	branch   bool
	syscall  bool

	is64bit    bool
	setFlags   bool
	memSize    int
	signExtend bool
	memOffset  int64

	directTarget    uint64
	hasDirectTarget bool
	linkReg         bool // BL/BLR also write the return address to X30

	cond insts.Cond

	// immediate/shift operands already resolved at decode time, used by
	// Execute instead of re-decoding the instruction word.
	imm   uint64
	shift uint8

	pc uint64

	result      register.Value
	flagsResult register.Value
	hasFlags    bool
}

// buildUop constructs the uop(s) for one decoded instruction. Unsupported
// or unrecognized encodings come back as a single uop carrying
// ExceptionDecodeFail/ExceptionNotImplemented and no register effects, so
// the pipeline can still flow it through to commit and halt cleanly rather
// than panicking mid-decode.
func buildUop(pc uint64, inst *insts.Instruction, instructionID uint64, nextPC uint64, ports *portTable) instr.Uop {
	if inst.Op == insts.OpUnknown {
		u := &Uop{Base: instr.NewBase(instructionID, 0, pc, nil, nil)}
		u.SetNextSequentialPC(nextPC)
		u.SetException(instr.ExceptionDecodeFail)
		u.SetExecuted()
		u.SetCanCommit()
		return u
	}

	class, grp, ok := classify(inst.Op)
	if !ok {
		u := &Uop{Base: instr.NewBase(instructionID, 0, pc, nil, nil)}
		u.SetNextSequentialPC(nextPC)
		u.SetException(instr.ExceptionNotImplemented)
		u.SetExecuted()
		u.SetCanCommit()
		return u
	}

	u := &Uop{
		op:       inst.Op,
		class:    class,
		ports:    ports.ports(grp),
		is64bit:  inst.Is64Bit,
		setFlags: inst.SetFlags,
		cond:     inst.Cond,
		imm:      inst.Imm,
		shift:    inst.Shift,
		pc:       pc,
	}

	var src, dst []register.Register

	switch {
	case inst.Op == insts.OpSVC:
		u.syscall = true
		src = []register.Register{reg(8), reg(0), reg(1), reg(2), reg(3), reg(4), reg(5)}
		dst = []register.Register{reg(0)}

	case inst.Op == insts.OpB, inst.Op == insts.OpBL:
		u.branch = true
		u.hasDirectTarget = true
		u.directTarget = uint64(int64(pc) + inst.BranchOffset)
		if inst.Op == insts.OpBL {
			u.linkReg = true
			dst = []register.Register{reg(30)}
		}

	case inst.Op == insts.OpBCond:
		u.branch = true
		u.directTarget = uint64(int64(pc) + inst.BranchOffset)
		src = []register.Register{flagsReg}

	case inst.Op == insts.OpBR, inst.Op == insts.OpBLR, inst.Op == insts.OpRET:
		u.branch = true
		src = []register.Register{reg(inst.Rn)}
		if inst.Op == insts.OpBLR {
			u.linkReg = true
			dst = []register.Register{reg(30)}
		}

	case inst.Op == insts.OpMOVZ, inst.Op == insts.OpMOVN:
		dst = []register.Register{reg(inst.Rd)}
	case inst.Op == insts.OpMOVK:
		// MOVK keeps every bit outside the 16-bit field it writes, so the
		// old value of Rd is itself a source operand.
		src = []register.Register{reg(inst.Rd)}
		dst = []register.Register{reg(inst.Rd)}

	case inst.Op == insts.OpADR, inst.Op == insts.OpADRP:
		u.memOffset = inst.BranchOffset
		dst = []register.Register{reg(inst.Rd)}

	case inst.Op == insts.OpADD, inst.Op == insts.OpSUB,
		inst.Op == insts.OpAND, inst.Op == insts.OpORR, inst.Op == insts.OpEOR:
		if inst.Format == insts.FormatDPReg {
			src = []register.Register{reg(inst.Rn), reg(inst.Rm)}
		} else {
			src = []register.Register{reg(inst.Rn)}
		}
		dst = []register.Register{reg(inst.Rd)}
		if inst.SetFlags {
			dst = append(dst, flagsReg)
		}
	}

	if !u.branch && !u.syscall {
		switch inst.Op {
		case insts.OpLDR, insts.OpLDRB, insts.OpLDRSB, insts.OpLDRH, insts.OpLDRSH:
			u.load = true
			size, signExtend := memSizeOf(inst.Op)
			if inst.Op == insts.OpLDR {
				size = 4
				if inst.Is64Bit {
					size = 8
				}
			}
			u.memSize = size
			u.signExtend = signExtend
			u.memOffset = int64(inst.Imm) + inst.SignedImm
			src = []register.Register{reg(inst.Rn)}
			dst = []register.Register{reg(inst.Rd)}

		case insts.OpSTR, insts.OpSTRB, insts.OpSTRH:
			u.store = true
			size, _ := memSizeOf(inst.Op)
			if inst.Op == insts.OpSTR {
				size = 4
				if inst.Is64Bit {
					size = 8
				}
			}
			u.memSize = size
			u.memOffset = int64(inst.Imm) + inst.SignedImm
			src = []register.Register{reg(inst.Rn), reg(inst.Rd)}
		}
	}

	u.Base = instr.NewBase(instructionID, 0, pc, src, dst)
	u.SetNextSequentialPC(nextPC)
	return u
}

// OpClass implements instr.Uop.
func (u *Uop) OpClass() instr.OpClass { return u.class }

// SupportedPorts implements instr.Uop.
func (u *Uop) SupportedPorts() []instr.Port { return u.ports }

// IsLoad, IsStore, IsBranch implement instr.Uop.
func (u *Uop) IsLoad() bool   { return u.load }
func (u *Uop) IsStore() bool  { return u.store }
func (u *Uop) IsBranch() bool { return u.branch }

// CheckEarlyBranchMisprediction implements instr.Uop: B and BL have a fixed
// displacement known at decode time, so a mispredict can be caught before
// execution reaches them at all. BCond's outcome depends on flags and BR/
// BLR/RET's target depends on a register, so both fall back to the
// default "cannot tell" answer.
func (u *Uop) CheckEarlyBranchMisprediction() (uint64, bool, bool) {
	if !u.branch || !u.hasDirectTarget {
		return 0, false, false
	}
	pred := u.BranchPrediction()
	mispredicted := !pred.Taken || (pred.TargetKnown && pred.Target != u.directTarget)
	return u.directTarget, mispredicted, true
}

// GenerateAddresses implements instr.Uop.
func (u *Uop) GenerateAddresses() []instr.MemoryTarget {
	base := u.Operand(0).Uint64()
	addr := uint64(int64(base) + u.memOffset)
	targets := []instr.MemoryTarget{{Address: addr, Size: u.memSize}}
	u.SetMemoryTargets(targets)
	return targets
}

// Execute implements instr.Uop.
func (u *Uop) Execute() {
	defer u.SetExecuted()

	switch {
	case u.syscall:
		// Source operands (syscall number, arguments) are only guaranteed
		// supplied once execution reaches this point — setting the
		// exception any earlier (at decode) would let dispatch's
		// already-excepted short-circuit skip operand supply entirely, and
		// the handler would see zero arguments at commit. The actual
		// syscall runs in the exception handler once this uop commits.
		u.SetException(instr.ExceptionSyscall)
		return

	case u.store:
		return

	case u.load:
		raw := u.MemoryData(0)
		if !raw.Valid() {
			return
		}
		if u.signExtend {
			u.result = raw.SignExtend(8)
		} else {
			u.result = raw.ZeroExtend(8)
		}
		return

	case u.branch:
		u.executeBranch()
		return

	default:
		u.executeALU()
	}
}

func (u *Uop) executeBranch() {
	switch u.op {
	case insts.OpB:
		u.ResolveBranch(true, u.directTarget)
	case insts.OpBL:
		u.ResolveBranch(true, u.directTarget)
		u.result = register.FromUint64(u.NextSequentialPC())
	case insts.OpBCond:
		n, z, c, v := unpackFlags(u.Operand(0))
		taken := checkCond(u.cond, n, z, c, v)
		target := u.NextSequentialPC()
		if taken {
			target = u.directTarget
		}
		u.ResolveBranch(taken, target)
	case insts.OpBR:
		u.ResolveBranch(true, u.Operand(0).Uint64())
	case insts.OpBLR:
		target := u.Operand(0).Uint64()
		u.ResolveBranch(true, target)
		u.result = register.FromUint64(u.NextSequentialPC())
	case insts.OpRET:
		u.ResolveBranch(true, u.Operand(0).Uint64())
	}
}

func (u *Uop) executeALU() {
	width := uint(32)
	if u.is64bit {
		width = 64
	}
	mask := uint64(1)<<width - 1
	if width == 64 {
		mask = ^uint64(0)
	}

	switch u.op {
	case insts.OpADD, insts.OpSUB:
		op1 := u.Operand(0).Uint64() & mask
		var op2 uint64
		if len(u.Sources()) > 1 {
			op2 = u.Operand(1).Uint64() & mask
		} else {
			op2 = (u.imm << u.shift) & mask
		}
		var sum uint64
		var carry, overflow bool
		if u.op == insts.OpADD {
			sum = (op1 + op2) & mask
			carry = sum < op1
			op1Sign := op1>>(width-1)&1 == 1
			op2Sign := op2>>(width-1)&1 == 1
			sumSign := sum>>(width-1)&1 == 1
			overflow = op1Sign == op2Sign && op1Sign != sumSign
		} else {
			sum = (op1 - op2) & mask
			carry = op1 >= op2
			op1Sign := op1>>(width-1)&1 == 1
			op2Sign := op2>>(width-1)&1 == 1
			sumSign := sum>>(width-1)&1 == 1
			overflow = op1Sign != op2Sign && op2Sign == sumSign
		}
		u.result = register.FromUint64(sum)
		if u.setFlags {
			n := sum>>(width-1)&1 == 1
			z := sum == 0
			u.flagsResult = packFlags(n, z, carry, overflow)
			u.hasFlags = true
		}

	case insts.OpAND, insts.OpORR, insts.OpEOR:
		op1 := u.Operand(0).Uint64() & mask
		op2 := u.Operand(1).Uint64() & mask
		var out uint64
		switch u.op {
		case insts.OpAND:
			out = op1 & op2
		case insts.OpORR:
			out = op1 | op2
		case insts.OpEOR:
			out = op1 ^ op2
		}
		u.result = register.FromUint64(out)
		if u.setFlags {
			n := out>>(width-1)&1 == 1
			u.flagsResult = packFlags(n, out == 0, false, false)
			u.hasFlags = true
		}

	case insts.OpMOVZ:
		u.result = register.FromUint64((u.imm << u.shift) & mask)
	case insts.OpMOVN:
		u.result = register.FromUint64(^(u.imm << u.shift) & mask)
	case insts.OpMOVK:
		old := u.Operand(0).Uint64()
		cleared := old &^ (uint64(0xffff) << u.shift)
		u.result = register.FromUint64(cleared | (u.imm << u.shift))

	case insts.OpADR:
		u.result = register.FromUint64(uint64(int64(u.pc) + u.memOffset))
	case insts.OpADRP:
		base := u.pc &^ 0xfff
		u.result = register.FromUint64(uint64(int64(base) + u.memOffset))
	}
}

// GetResults implements instr.Uop. A syscall uop always returns an empty
// slice: its destination register is written later, directly through the
// operand-forwarding path the exception handler binds to, once the actual
// return value is known — never through the normal writeback that runs
// immediately after Execute.
func (u *Uop) GetResults() []register.Value {
	if u.syscall {
		return nil
	}
	if u.store {
		return []register.Value{u.Operand(1)}
	}
	if u.hasFlags {
		return []register.Value{u.result, u.flagsResult}
	}
	return []register.Value{u.result}
}
