package arch_test

import (
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mutalibmohammed/SimEng/arch"
	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/register"
)

func leBytes(word uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, word)
	return b
}

var _ = Describe("Decoder", func() {
	var d *arch.Decoder

	BeforeEach(func() {
		d = arch.NewDecoder(config.Default())
	})

	It("reports a fixed 4-byte instruction size", func() {
		Expect(d.InstructionSize()).To(Equal(4))
	})

	It("rejects a byte slice that isn't one instruction wide", func() {
		_, err := d.Predecode(0x1000, []byte{0, 1, 2}, 1)
		Expect(err).To(HaveOccurred())
	})

	It("decodes ADD X0, X1, #42 into one ALU uop reading X1 only", func() {
		mop, err := d.Predecode(0x1000, leBytes(0x9100A820), 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(mop.Uops).To(HaveLen(1))

		u := mop.Uops[0]
		Expect(u.OpClass()).To(Equal(instr.ClassALU))
		Expect(u.IsBranch()).To(BeFalse())
		Expect(u.Sources()).To(Equal([]register.Register{{Type: register.General, Tag: 1}}))
		Expect(u.Destinations()).To(Equal([]register.Register{{Type: register.General, Tag: 0}}))
		Expect(u.Exception()).To(Equal(instr.ExceptionNone))
	})

	It("decodes SUB X5, X6, #20 the same shape as ADD", func() {
		mop, err := d.Predecode(0x1000, leBytes(0xD10050C5), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.OpClass()).To(Equal(instr.ClassALU))
		Expect(u.Sources()).To(Equal([]register.Register{{Type: register.General, Tag: 6}}))
		Expect(u.Destinations()).To(Equal([]register.Register{{Type: register.General, Tag: 5}}))
	})

	It("decodes B #0x100 as a direct branch with no source registers", func() {
		mop, err := d.Predecode(0x2000, leBytes(0x14000040), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.IsBranch()).To(BeTrue())
		Expect(u.OpClass()).To(Equal(instr.ClassBranch))
		Expect(u.Sources()).To(BeEmpty())

		target, mispredicted, ok := u.CheckEarlyBranchMisprediction()
		Expect(ok).To(BeTrue())
		Expect(target).To(Equal(uint64(0x2100)))
		Expect(mispredicted).To(BeTrue()) // default prediction is not-taken
	})

	It("decodes BL #0x200 as a branch that also writes the link register", func() {
		mop, err := d.Predecode(0x2000, leBytes(0x94000080), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.IsBranch()).To(BeTrue())
		Expect(u.Destinations()).To(Equal([]register.Register{{Type: register.General, Tag: 30}}))
	})

	It("decodes RET as a branch sourcing X30", func() {
		mop, err := d.Predecode(0x3000, leBytes(0xD65F03C0), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.IsBranch()).To(BeTrue())
		Expect(u.Sources()).To(Equal([]register.Register{{Type: register.General, Tag: 30}}))
	})

	It("decodes LDR X0, [X1] as a load sourcing only the base register", func() {
		mop, err := d.Predecode(0x1000, leBytes(0xF9400020), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.IsLoad()).To(BeTrue())
		Expect(u.OpClass()).To(Equal(instr.ClassLoad))
		Expect(u.Sources()).To(Equal([]register.Register{{Type: register.General, Tag: 1}}))
		Expect(u.Destinations()).To(Equal([]register.Register{{Type: register.General, Tag: 0}}))
	})

	It("decodes STR X0, [X1] as a store sourcing base and data, writing nothing", func() {
		mop, err := d.Predecode(0x1000, leBytes(0xF9000020), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.IsStore()).To(BeTrue())
		Expect(u.OpClass()).To(Equal(instr.ClassStore))
		Expect(u.Sources()).To(Equal([]register.Register{
			{Type: register.General, Tag: 1},
			{Type: register.General, Tag: 0},
		}))
		Expect(u.Destinations()).To(BeEmpty())
	})

	It("decodes SVC #0 with every argument register as a source and no exception yet", func() {
		mop, err := d.Predecode(0x1000, leBytes(0xD4000001), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.OpClass()).To(Equal(instr.ClassSyscall))
		Expect(u.Sources()).To(HaveLen(7))
		Expect(u.Sources()[0]).To(Equal(register.Register{Type: register.General, Tag: 8}))
		Expect(u.Destinations()).To(Equal([]register.Register{{Type: register.General, Tag: 0}}))
		// The exception is only set once Execute runs (see arch/uop.go): setting
		// it at decode would let dispatch's already-excepted short-circuit skip
		// supplying these seven source operands entirely.
		Expect(u.Exception()).To(Equal(instr.ExceptionNone))
	})

	It("reports an unimplemented exception for a decoded-but-unsupported op", func() {
		// LDP X0, X1, [X2] -> 0xA9400440: decodes cleanly in insts but this
		// package has no execution semantics for load/store pair.
		mop, err := d.Predecode(0x1000, leBytes(0xA9400440), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.Exception()).To(Equal(instr.ExceptionNotImplemented))
		Expect(u.CanCommit()).To(BeTrue())
	})

	It("reports a decode-fail exception for an unrecognized word", func() {
		mop, err := d.Predecode(0x1000, leBytes(0xFFFFFFFF), 1)
		Expect(err).NotTo(HaveOccurred())

		u := mop.Uops[0]
		Expect(u.Exception()).To(Equal(instr.ExceptionDecodeFail))
		Expect(u.CanCommit()).To(BeTrue())
	})
})
