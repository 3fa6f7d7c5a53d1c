// Package core wires the out-of-order pipeline stages into one cycle-
// accurate model and owns flush orchestration: whichever stage detects a
// misprediction, exception, or memory-ordering violation, Core is the one
// place that rolls the machine back to a consistent state.
package core

import (
	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/memio"
	"github.com/mutalibmohammed/SimEng/pipeline"
	"github.com/mutalibmohammed/SimEng/predictor"
	"github.com/mutalibmohammed/SimEng/register"
	"github.com/mutalibmohammed/SimEng/rename"
	"github.com/mutalibmohammed/SimEng/stats"
	"github.com/mutalibmohammed/SimEng/timing/latency"
)

// Core owns every pipeline stage and buffer, the architectural register
// state, and the memory interface, and drives one cycle at a time in
// reverse program-flow order: commit first, fetch last, with memory
// interfaces ticked after everything that may have issued a request this
// cycle.
type Core struct {
	cfg *config.Settings

	fetch   *pipeline.FetchUnit
	decode  *pipeline.DecodeUnit
	rn      *pipeline.RenameUnit
	disIss  *pipeline.DispatchIssueUnit
	lsq     *pipeline.LoadStoreQueue
	execs   []*pipeline.ExecuteUnit
	wbs     []*pipeline.WritebackUnit
	rob     *pipeline.ReorderBuffer

	rat        *rename.RAT
	scoreboard *rename.Scoreboard
	regfile    *rename.RegisterFileSet

	imem memio.Interface
	dmem memio.Interface

	pred      predictor.Predictor
	exHandler instr.ExceptionHandler

	buffers []interface{ Tick() }

	registry *stats.Registry

	halted   bool
	exitCode int64

	statCycles stats.Counter
	statFlushes stats.Counter
}

// Dependencies bundles the ISA-specific and memory collaborators a Core
// needs; everything else (buffers, stages, the RAT/scoreboard/register
// file) Core builds itself from cfg.
type Dependencies struct {
	Decoder   instr.Predecoder
	ExHandler instr.ExceptionHandler
	IMem      memio.Interface
	DMem      memio.Interface
	Predictor predictor.Predictor
}

// forwarderBinder is implemented by an ExceptionHandler that wants to
// deliver a result (a syscall return value) through the same
// operand-forwarding path writeback uses, so a dependent uop still parked
// in the dependency matrix wakes correctly regardless of when the
// exception finishes relative to dispatch.
type forwarderBinder interface {
	BindForwarder(register.Forwarder)
}

// registerCounts derives the per-type physical and architectural register
// counts NewRAT/NewScoreboard/NewRegisterFileSet need from cfg.
func registerCounts(cfg *config.Settings) (physical, arch map[register.Type]int) {
	physical = map[register.Type]int{
		register.General: cfg.Core.GeneralRegisters,
		register.Vector:  cfg.Core.VectorRegisters,
		register.System:  cfg.Core.SystemRegisters,
	}
	arch = map[register.Type]int{
		register.General: cfg.Core.ArchGeneralRegs,
		register.Vector:  cfg.Core.ArchVectorRegs,
		register.System:  cfg.Core.ArchSystemRegs,
	}
	return physical, arch
}

// New builds a Core from cfg and deps, wiring every inter-stage buffer and
// per-port execute/writeback pair according to cfg's port and
// reservation-station layout.
func New(cfg *config.Settings, deps Dependencies) (*Core, error) {
	registry := stats.NewRegistry()

	physCounts, archCounts := registerCounts(cfg)
	rat := rename.NewRAT(physCounts, archCounts)
	scoreboard := rename.NewScoreboard(physCounts)
	regfile := rename.NewRegisterFileSet(physCounts)

	fetchOut := pipeline.NewBuffer[instr.MacroOp](cfg.Core.FetchWidth)
	decodeOut := pipeline.NewBuffer[instr.Uop](cfg.Core.FetchWidth)
	renameOut := pipeline.NewBuffer[instr.Uop](cfg.Core.FetchWidth)

	fetch := pipeline.NewFetchUnit(deps.IMem, deps.Predictor, deps.Decoder, fetchOut, registry)
	decode := pipeline.NewDecodeUnit(fetchOut, decodeOut, registry)

	table := latency.NewTable(cfg.Latencies)

	issueOuts := make([]*pipeline.Buffer[instr.Uop], len(cfg.Ports))
	execOuts := make([]*pipeline.Buffer[instr.Uop], len(cfg.Ports))
	for i := range cfg.Ports {
		issueOuts[i] = pipeline.NewBuffer[instr.Uop](1)
		execOuts[i] = pipeline.NewBuffer[instr.Uop](1)
	}

	allocator := pipeline.NewBalancedPortAllocator(len(cfg.Ports))
	disIss, err := pipeline.NewDispatchIssueUnit(renameOut, cfg, issueOuts, allocator, scoreboard, regfile, registry)
	if err != nil {
		return nil, err
	}

	rob := pipeline.NewReorderBuffer(cfg.Core.ROBSize, rat, deps.Predictor, deps.ExHandler, registry)
	rn := pipeline.NewRenameUnit(decodeOut, renameOut, rat, scoreboard, regfile, rob, registry)

	if fb, ok := deps.ExHandler.(forwarderBinder); ok {
		fb.BindForwarder(disIss)
	}

	loadPort, hasLoad := cfg.PortIndexByName("LOAD")
	storePort, hasStore := cfg.PortIndexByName("STORE")

	var lsq *pipeline.LoadStoreQueue
	lsqOut := pipeline.NewBuffer[instr.Uop](1)
	if hasLoad && hasStore {
		lsq = pipeline.NewLoadStoreQueue(issueOuts[loadPort], issueOuts[storePort], lsqOut, deps.DMem, registry)
	}

	var execs []*pipeline.ExecuteUnit
	var wbs []*pipeline.WritebackUnit
	for i := range cfg.Ports {
		if i == loadPort && hasLoad {
			continue
		}
		if i == storePort && hasStore {
			continue
		}
		exec := pipeline.NewExecuteUnit(issueOuts[i], execOuts[i], table)
		execs = append(execs, exec)
		wbs = append(wbs, pipeline.NewWritebackUnit(execOuts[i], disIss))
	}
	if lsq != nil {
		wbs = append(wbs, pipeline.NewWritebackUnit(lsqOut, disIss))
	}

	buffers := []interface{ Tick() }{fetchOut, decodeOut, renameOut, lsqOut}
	for _, b := range issueOuts {
		buffers = append(buffers, b)
	}
	for _, b := range execOuts {
		buffers = append(buffers, b)
	}

	c := &Core{
		cfg:         cfg,
		fetch:       fetch,
		decode:      decode,
		rn:          rn,
		disIss:      disIss,
		lsq:         lsq,
		execs:       execs,
		wbs:         wbs,
		rob:         rob,
		rat:         rat,
		scoreboard:  scoreboard,
		regfile:     regfile,
		imem:        deps.IMem,
		dmem:        deps.DMem,
		pred:        deps.Predictor,
		exHandler:   deps.ExHandler,
		buffers:     buffers,
		registry:    registry,
		statCycles:  registry.Register("core.cycles"),
		statFlushes: registry.Register("core.flushes"),
	}
	return c, nil
}

// SetPC redirects the fetch stream to pc. Call once before the first Tick.
func (c *Core) SetPC(pc uint64) {
	c.fetch.SetPC(pc)
}

// Halted reports whether the core has stopped issuing new instructions.
func (c *Core) Halted() bool {
	return c.halted
}

// ExitCode returns the guest program's exit code, valid once Halted.
func (c *Core) ExitCode() int64 {
	return c.exitCode
}

// Stats returns a snapshot of every named counter registered by the core
// and its stages.
func (c *Core) Stats() map[string]string {
	return c.registry.Snapshot()
}

// Tick advances the core by one cycle: stages run from the back of the
// pipeline to the front so that a uop produced earlier in the cycle by an
// upstream stage is never also consumed by a downstream stage in the same
// cycle, then every inter-stage buffer shifts, then the memory interfaces
// advance their own internal timing.
func (c *Core) Tick() {
	c.registry.Inc(c.statCycles)

	result := c.rob.Commit(c.cfg.Core.CommitWidth)

	for _, wb := range c.wbs {
		wb.Tick()
	}
	for _, ex := range c.execs {
		ex.Tick()
	}
	if c.lsq != nil {
		c.lsq.Tick()
	}
	c.disIss.Tick()
	c.rn.Tick()
	c.decode.Tick()
	c.fetch.Tick()

	flushRequired := result.FlushRequired
	flushTarget := result.FlushTarget
	flushKeepID, flushKeepSeq := result.FlushKeepID, result.FlushKeepSeq
	flushInclusive := false

	if !flushRequired && c.decode.ShouldFlush() {
		flushRequired = true
		flushTarget = c.decode.FlushAddress()
	}
	if !flushRequired && c.lsq != nil {
		if id, seq, pc, ok := c.lsq.ViolationDetected(); ok {
			flushRequired = true
			flushInclusive = true
			flushKeepID, flushKeepSeq = id, seq
			flushTarget = pc
		}
	}

	if flushRequired {
		c.registry.Inc(c.statFlushes)
		c.doFlush(flushKeepID, flushKeepSeq, flushTarget, flushInclusive)
	}

	if result.Halt {
		c.halted = true
		c.exitCode = result.ExitCode
		c.fetch.Halt()
	}

	for _, b := range c.buffers {
		b.Tick()
	}

	c.imem.Tick()
	if c.dmem != c.imem {
		c.dmem.Tick()
	}
}

// doFlush rolls the machine back to the last surviving uop, unwinding the
// RAT, clearing every stage's internal queues, and redirecting fetch.
// inclusive additionally discards the named (keepID, keepSeq) uop itself,
// used when that uop must be re-executed rather than kept (a
// memory-ordering violation caught at its load).
func (c *Core) doFlush(keepID, keepSeq, target uint64, inclusive bool) {
	if inclusive {
		c.rob.FlushFrom(keepID, keepSeq)
	} else {
		c.rob.Flush(keepID, keepSeq)
	}
	c.decode.PurgeFlushed()
	c.rn.PurgeFlushed()
	c.disIss.PurgeFlushed()
	if c.lsq != nil {
		c.lsq.PurgeFlushed()
	}
	for _, ex := range c.execs {
		ex.PurgeFlushed()
	}
	c.fetch.SetPC(target)
}

// HasPendingMemoryRequests reports whether either memory interface still
// has a request in flight, used by the driver loop to decide whether the
// simulation can stop once Halted.
func (c *Core) HasPendingMemoryRequests() bool {
	if c.imem.HasPendingRequests() {
		return true
	}
	if c.dmem != c.imem && c.dmem.HasPendingRequests() {
		return true
	}
	return false
}

// Run ticks the core until it halts and has no outstanding memory
// requests, returning the guest program's exit code.
func (c *Core) Run() int64 {
	for !c.Halted() || c.HasPendingMemoryRequests() {
		c.Tick()
	}
	return c.ExitCode()
}
