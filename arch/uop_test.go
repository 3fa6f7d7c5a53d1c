package arch_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mutalibmohammed/SimEng/arch"
	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/register"
)

var _ = Describe("Uop execution", func() {
	var d *arch.Decoder

	BeforeEach(func() {
		d = arch.NewDecoder(config.Default())
	})

	decode := func(pc uint64, word uint32) instr.Uop {
		mop, err := d.Predecode(pc, leBytes(word), 1)
		Expect(err).NotTo(HaveOccurred())
		return mop.Uops[0]
	}

	Describe("ALU ops", func() {
		It("computes ADD X0, X1, #42 without touching flags", func() {
			u := decode(0x1000, 0x9100A820)
			u.SupplyOperand(0, register.FromUint64(1))
			Expect(u.CanExecute()).To(BeTrue())

			u.Execute()

			results := u.GetResults()
			Expect(results).To(HaveLen(1))
			Expect(results[0].Uint64()).To(Equal(uint64(43)))
			Expect(u.Exception()).To(Equal(instr.ExceptionNone))
		})

	})

	Describe("branches", func() {
		It("resolves B as always taken to its fixed target", func() {
			u := decode(0x2000, 0x14000040)
			Expect(u.CanExecute()).To(BeTrue())

			u.Execute()

			Expect(u.ResolvedTaken()).To(BeTrue())
			Expect(u.BranchTarget()).To(Equal(uint64(0x2100)))
		})

		It("resolves BL as taken and writes the return address as its result", func() {
			u := decode(0x2000, 0x94000080)
			u.Execute()

			Expect(u.ResolvedTaken()).To(BeTrue())
			Expect(u.BranchTarget()).To(Equal(uint64(0x2200)))
			Expect(u.GetResults()[0].Uint64()).To(Equal(uint64(0x2004)))
		})

		It("resolves a taken B.EQ when the zero flag is set", func() {
			u := decode(0x3000, 0x54000080)
			u.SupplyOperand(0, register.NewValue([]byte{0x04}, 1)) // Z set, N/C/V clear
			Expect(u.CanExecute()).To(BeTrue())

			u.Execute()

			Expect(u.ResolvedTaken()).To(BeTrue())
			Expect(u.BranchTarget()).To(Equal(uint64(0x3010)))
		})

		It("falls through B.EQ to the next sequential PC when the zero flag is clear", func() {
			u := decode(0x3000, 0x54000080)
			u.SupplyOperand(0, register.NewValue([]byte{0x00}, 1))

			u.Execute()

			Expect(u.ResolvedTaken()).To(BeFalse())
			Expect(u.BranchTarget()).To(Equal(uint64(0x3004)))
		})

		It("resolves RET to the value carried in the link register operand", func() {
			u := decode(0x4000, 0xD65F03C0)
			u.SupplyOperand(0, register.FromUint64(0x8000))

			u.Execute()

			Expect(u.ResolvedTaken()).To(BeTrue())
			Expect(u.BranchTarget()).To(Equal(uint64(0x8000)))
		})
	})

	Describe("loads and stores", func() {
		It("generates the effective address for LDR X0, [X1] with zero offset", func() {
			u := decode(0x1000, 0xF9400020)
			u.SupplyOperand(0, register.FromUint64(0x4000))

			targets := u.GenerateAddresses()
			Expect(targets).To(HaveLen(1))
			Expect(targets[0].Address).To(Equal(uint64(0x4000)))
			Expect(targets[0].Size).To(Equal(8))
		})

		It("zero-extends the delivered payload into its result", func() {
			u := decode(0x1000, 0xF9400020)
			u.SupplyOperand(0, register.FromUint64(0x4000))
			u.GenerateAddresses()
			u.SupplyMemoryData(0, register.FromUint64(0xdeadbeef))

			u.Execute()

			Expect(u.GetResults()[0].Uint64()).To(Equal(uint64(0xdeadbeef)))
		})

		It("reports the data register as the store's result, not a memory read", func() {
			u := decode(0x1000, 0xF9000020)
			u.SupplyOperand(0, register.FromUint64(0x4000)) // base
			u.SupplyOperand(1, register.FromUint64(99))     // data

			u.Execute()

			Expect(u.GetResults()).To(Equal([]register.Value{register.FromUint64(99)}))
		})
	})

	Describe("syscalls", func() {
		It("only raises the syscall exception once Execute runs, and returns no results", func() {
			u := decode(0x1000, 0xD4000001)
			for i := 0; i < 7; i++ {
				u.SupplyOperand(i, register.FromUint64(0))
			}
			Expect(u.Exception()).To(Equal(instr.ExceptionNone))

			u.Execute()

			Expect(u.Exception()).To(Equal(instr.ExceptionSyscall))
			Expect(u.GetResults()).To(BeNil())
		})
	})
})
