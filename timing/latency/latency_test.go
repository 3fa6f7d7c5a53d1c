package latency_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/timing/latency"
)

var _ = Describe("Table", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable(config.Default().Latencies)
	})

	Describe("default latencies", func() {
		It("gives ALU ops one cycle", func() {
			Expect(table.GetLatency(instr.ClassALU)).To(Equal(uint64(1)))
		})

		It("gives loads the configured L1 hit latency", func() {
			Expect(table.GetLatency(instr.ClassLoad)).To(Equal(uint64(4)))
		})

		It("gives stores one cycle", func() {
			Expect(table.GetLatency(instr.ClassStore)).To(Equal(uint64(1)))
		})

		It("gives multiply its configured latency", func() {
			Expect(table.GetLatency(instr.ClassMultiply)).To(Equal(uint64(3)))
		})

		It("reports a branch mispredict penalty", func() {
			Expect(table.BranchMispredictPenalty()).To(Equal(uint64(12)))
		})
	})

	Describe("divide latency range", func() {
		It("returns the minimum from GetMinLatency", func() {
			Expect(table.GetMinLatency(instr.ClassDivide)).To(Equal(uint64(10)))
		})

		It("returns the maximum from GetMaxLatency", func() {
			Expect(table.GetMaxLatency(instr.ClassDivide)).To(Equal(uint64(15)))
		})
	})

	Describe("op class classification", func() {
		It("detects memory ops", func() {
			Expect(latency.IsMemoryOp(instr.ClassLoad)).To(BeTrue())
			Expect(latency.IsMemoryOp(instr.ClassStore)).To(BeTrue())
			Expect(latency.IsMemoryOp(instr.ClassALU)).To(BeFalse())
		})

		It("detects load vs store", func() {
			Expect(latency.IsLoadOp(instr.ClassLoad)).To(BeTrue())
			Expect(latency.IsLoadOp(instr.ClassStore)).To(BeFalse())
			Expect(latency.IsStoreOp(instr.ClassStore)).To(BeTrue())
		})

		It("detects branch ops", func() {
			Expect(latency.IsBranchOp(instr.ClassBranch)).To(BeTrue())
			Expect(latency.IsBranchOp(instr.ClassALU)).To(BeFalse())
		})
	})

	Describe("custom configuration", func() {
		It("honors overridden values", func() {
			cfg := config.Default().Latencies
			cfg.ALU = 2
			cfg.Load = 8
			custom := latency.NewTable(cfg)

			Expect(custom.GetLatency(instr.ClassALU)).To(Equal(uint64(2)))
			Expect(custom.GetLatency(instr.ClassLoad)).To(Equal(uint64(8)))
		})
	})
})
