package arch

import (
	"io"

	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/register"
)

// Linux/ARM64 syscall numbers and error codes this handler understands,
// matching the subset the decoder's SVC uop can ever trigger.
const (
	syscallRead  uint64 = 63
	syscallWrite uint64 = 64
	syscallExit  uint64 = 93

	errBadFD     = 9
	errNoSyscall = 38
	errIO        = 5
)

// ExceptionHandler is the ISA collaborator the reorder buffer delegates to
// for every uop that reaches commit carrying an exception. It completes in
// a single Tick: nothing here models multi-cycle I/O latency, since the
// pipeline timing model only cares about when the core can resume
// fetching, not how long a host read() call took.
//
// Every fault other than ExceptionSyscall is treated as fatal: there is no
// guest-visible signal handler to deliver to, so a decode failure, an
// unimplemented opcode, a misaligned access, or a page fault simply halts
// the core at the faulting PC.
type ExceptionHandler struct {
	mem *Memory

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	fwd register.Forwarder

	u        instr.Uop
	fatal    bool
	exitCode int64
	resumePC uint64
}

// NewExceptionHandler builds an ExceptionHandler backed by mem for guest
// memory access during read/write syscalls, and the given host streams.
func NewExceptionHandler(mem *Memory, stdin io.Reader, stdout, stderr io.Writer) *ExceptionHandler {
	return &ExceptionHandler{mem: mem, stdin: stdin, stdout: stdout, stderr: stderr}
}

// BindForwarder lets core.New wire this handler into the scheduler's
// operand-forwarding path, so a syscall's return value wakes a dependent
// uop the same way a normal writeback would.
func (h *ExceptionHandler) BindForwarder(f register.Forwarder) {
	h.fwd = f
}

// Begin implements instr.ExceptionHandler.
func (h *ExceptionHandler) Begin(u instr.Uop) {
	h.u = u
	h.fatal = false
	h.exitCode = 0
	h.resumePC = u.PC()
}

// Tick implements instr.ExceptionHandler. It always finishes in one cycle.
func (h *ExceptionHandler) Tick() bool {
	defer func() { h.u = nil }()

	if h.u.Exception() != instr.ExceptionSyscall {
		h.fatal = true
		return true
	}

	au, ok := h.u.(*Uop)
	if !ok {
		h.fatal = true
		return true
	}

	num := au.Operand(0).Uint64()
	var result uint64
	switch num {
	case syscallExit:
		h.fatal = true
		h.exitCode = au.Operand(1).Int64()
		return true
	case syscallRead:
		result = h.handleRead(au)
	case syscallWrite:
		result = h.handleWrite(au)
	default:
		result = uint64(-int64(errNoSyscall))
	}

	h.resumePC = h.u.NextSequentialPC()

	if h.fwd != nil {
		if dests := h.u.Destinations(); len(dests) > 0 {
			h.fwd.ForwardOperands(dests, []register.Value{register.FromUint64(result)})
		}
	}
	return true
}

func (h *ExceptionHandler) handleRead(au *Uop) uint64 {
	fd := au.Operand(1).Uint64()
	bufPtr := au.Operand(2).Uint64()
	count := au.Operand(3).Uint64()

	if fd != 0 {
		return uint64(-int64(errBadFD))
	}
	if h.stdin == nil {
		return 0
	}

	buf := make([]byte, count)
	n, err := h.stdin.Read(buf)
	if err != nil && n == 0 {
		return 0
	}
	h.mem.Write(bufPtr, buf[:n])
	return uint64(n)
}

func (h *ExceptionHandler) handleWrite(au *Uop) uint64 {
	fd := au.Operand(1).Uint64()
	bufPtr := au.Operand(2).Uint64()
	count := au.Operand(3).Uint64()

	var w io.Writer
	switch fd {
	case 1:
		w = h.stdout
	case 2:
		w = h.stderr
	default:
		return uint64(-int64(errBadFD))
	}

	buf := h.mem.Read(bufPtr, int(count))
	n, err := w.Write(buf)
	if err != nil {
		return uint64(-int64(errIO))
	}
	return uint64(n)
}

// ResumePC implements instr.ExceptionHandler.
func (h *ExceptionHandler) ResumePC() uint64 { return h.resumePC }

// Fatal implements instr.ExceptionHandler.
func (h *ExceptionHandler) Fatal() bool { return h.fatal }

// ExitCode implements instr.ExceptionHandler.
func (h *ExceptionHandler) ExitCode() int64 { return h.exitCode }
