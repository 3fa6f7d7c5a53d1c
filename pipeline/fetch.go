package pipeline

import (
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/memio"
	"github.com/mutalibmohammed/SimEng/predictor"
	"github.com/mutalibmohammed/SimEng/stats"
)

// FetchUnit fetches instruction bytes at the current program counter,
// predecodes them into macro-ops, consults the branch predictor for every
// emitted branch, and redirects the fetch PC on a predicted-taken branch —
// which ends the fetch group for that cycle, since nothing after a taken
// branch is on the predicted path.
type FetchUnit struct {
	imem      memio.Interface
	predictor predictor.Predictor
	decoder   instr.Predecoder
	out       *Buffer[instr.MacroOp]

	pc                uint64
	nextInstructionID uint64
	nextRequestID     uint64
	pendingPC         map[uint64]uint64
	ready             []instr.MacroOp

	halted bool

	registry      *stats.Registry
	statRequests  stats.Counter
	statRedirects stats.Counter
}

// NewFetchUnit builds a FetchUnit reading instruction bytes through imem,
// predecoding with decoder, and predicting branches with pred.
func NewFetchUnit(imem memio.Interface, pred predictor.Predictor, decoder instr.Predecoder, out *Buffer[instr.MacroOp], registry *stats.Registry) *FetchUnit {
	return &FetchUnit{
		imem:          imem,
		predictor:     pred,
		decoder:       decoder,
		out:           out,
		pendingPC:     make(map[uint64]uint64),
		registry:      registry,
		statRequests:  registry.Register("fetch.requests"),
		statRedirects: registry.Register("fetch.redirects"),
	}
}

// SetPC redirects the fetch stream to pc, discarding any in-flight fetch
// group. Used at startup and by the reorder buffer on flush.
func (f *FetchUnit) SetPC(pc uint64) {
	f.pc = pc
	f.ready = nil
	f.pendingPC = make(map[uint64]uint64)
}

// PC returns the current fetch program counter.
func (f *FetchUnit) PC() uint64 {
	return f.pc
}

// Halt stops FetchUnit from issuing further requests, used once a halting
// instruction (e.g. a syscall exit) has been seen.
func (f *FetchUnit) Halt() {
	f.halted = true
}

// Tick implements one cycle of fetch: first drain any instruction-memory
// completions into the internal ready queue, then issue new requests and
// drain ready macro-ops into the output buffer's tail slots.
func (f *FetchUnit) Tick() {
	for _, r := range f.imem.GetCompletedReads() {
		pc, ok := f.pendingPC[r.RequestID]
		if !ok {
			continue
		}
		delete(f.pendingPC, r.RequestID)
		if !r.Value.Valid() {
			continue
		}
		macro, err := f.decoder.Predecode(pc, r.Value.Bytes(), f.nextInstructionID)
		f.nextInstructionID++
		if err != nil {
			continue
		}
		f.ready = append(f.ready, macro)
	}
	f.imem.ClearCompletedReads()

	if f.out.Stalled() {
		return
	}

	tail := f.out.TailSlots()
	filled := 0
	for filled < len(tail) && len(f.ready) > 0 {
		macro := f.ready[0]
		f.ready = f.ready[1:]
		tail[filled] = macro
		filled++
		f.applyPrediction(macro)
	}

	if f.halted {
		return
	}
	width := f.decoder.InstructionSize()
	inFlight := len(f.pendingPC) + len(f.ready)
	for inFlight+filled < len(tail) {
		f.registry.Inc(f.statRequests)
		id := f.nextRequestID
		f.nextRequestID++
		f.pendingPC[id] = f.pc
		f.imem.RequestRead(memio.Target{Address: f.pc, Size: width}, id)
		f.pc += uint64(width)
		inFlight++
	}
}

// applyPrediction consults the predictor for every branch uop in macro and
// redirects the fetch PC if the branch predicts taken.
func (f *FetchUnit) applyPrediction(macro instr.MacroOp) {
	for _, u := range macro.Uops {
		if !u.IsBranch() {
			continue
		}
		pred := f.predictor.Predict(u.PC())
		u.SetBranchPrediction(pred)
		if pred.Taken && pred.TargetKnown {
			f.pc = pred.Target
			f.ready = nil
			f.registry.Inc(f.statRedirects)
		}
	}
}
