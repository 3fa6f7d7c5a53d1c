package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/pipeline"
	"github.com/mutalibmohammed/SimEng/register"
	"github.com/mutalibmohammed/SimEng/timing/latency"
)

var _ = Describe("ExecuteUnit", func() {
	It("runs Execute once the op class's latency has elapsed and drains the finished uop", func() {
		table := latency.NewTable(config.Latencies{ALU: 2})
		in := pipeline.NewBuffer[instr.Uop](1)
		out := pipeline.NewBuffer[instr.Uop](1)
		eu := pipeline.NewExecuteUnit(in, out, table)

		u := decodeUop(0x9100A820) // ADD X0, X1, #42
		u.SupplyOperand(0, register.FromUint64(1))
		in.HeadSlots()[0] = u

		eu.Tick() // admits the uop, 1 cycle left
		Expect(u.Executed()).To(BeFalse())
		Expect(out.TailSlots()[0]).To(BeNil())

		// A real core's per-cycle buffer Tick clears a stage's input head
		// once consumed; this test stands in for that since it drives
		// ExecuteUnit directly rather than through Core.Tick.
		in.HeadSlots()[0] = nil

		eu.Tick() // finishes and drains
		Expect(u.Executed()).To(BeTrue())
		Expect(out.TailSlots()[0]).To(Equal(instr.Uop(u)))
	})

	It("treats a zero-cycle latency class as a one-cycle minimum", func() {
		table := latency.NewTable(config.Latencies{ALU: 0})
		in := pipeline.NewBuffer[instr.Uop](1)
		out := pipeline.NewBuffer[instr.Uop](1)
		eu := pipeline.NewExecuteUnit(in, out, table)

		u := decodeUop(0x9100A820)
		u.SupplyOperand(0, register.FromUint64(1))
		in.HeadSlots()[0] = u

		eu.Tick()
		Expect(u.Executed()).To(BeTrue())
	})

	It("drops a flushed uop from the in-flight pipe on PurgeFlushed without executing it", func() {
		table := latency.NewTable(config.Latencies{ALU: 5})
		in := pipeline.NewBuffer[instr.Uop](1)
		out := pipeline.NewBuffer[instr.Uop](1)
		eu := pipeline.NewExecuteUnit(in, out, table)

		u := decodeUop(0x9100A820)
		u.SupplyOperand(0, register.FromUint64(1))
		in.HeadSlots()[0] = u
		eu.Tick()

		u.SetFlushed()
		eu.PurgeFlushed()

		for i := 0; i < 10; i++ {
			eu.Tick()
		}
		Expect(u.Executed()).To(BeFalse())
	})
})
